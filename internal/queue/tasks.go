package queue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TaskLoyaltyExpirePoints 积分过期清理任务
	TaskLoyaltyExpirePoints = constants.TaskLoyaltyExpirePoints
	// TaskLoyaltyExpiringSoon 积分即将过期提醒任务
	TaskLoyaltyExpiringSoon = constants.TaskLoyaltyExpiringSoon
	// TaskPromotionSyncStatus 活动状态同步任务
	TaskPromotionSyncStatus = constants.TaskPromotionSyncStatus
)

// DomainEventPayload 领域事件载荷（由外部通知层消费）
type DomainEventPayload struct {
	EventID        string    `json:"event_id"`
	Name           string    `json:"name"`
	CustomerID     uint      `json:"customer_id"`
	Points         int64     `json:"points,omitempty"`
	OrderReference string    `json:"order_reference,omitempty"`
	NewLevel       string    `json:"new_level,omitempty"`
	BonusPoints    int64     `json:"bonus_points,omitempty"`
	ExpiredPoints  int64     `json:"expired_points,omitempty"`
	ExpiringPoints int64     `json:"expiring_points,omitempty"`
	DaysRemaining  int       `json:"days_remaining,omitempty"`
	PromotionID    uint      `json:"promotion_id,omitempty"`
	DiscountAmount string    `json:"discount_amount,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ExpirePointsPayload 积分过期清理任务载荷
type ExpirePointsPayload struct {
	Limit int `json:"limit,omitempty"`
}

// ExpiringSoonPayload 积分即将过期提醒任务载荷
type ExpiringSoonPayload struct {
	Days int `json:"days"`
}

// PromotionSyncStatusPayload 活动状态同步任务载荷
type PromotionSyncStatusPayload struct{}

// DomainEventTaskType 返回领域事件任务类型
func DomainEventTaskType(name string) string {
	return constants.TaskDomainEventPrefix + strings.TrimSpace(name)
}

// NewDomainEventTask 创建领域事件任务，缺省时补齐事件ID与发生时间
func NewDomainEventTask(payload DomainEventPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.EventID) == "" {
		payload.EventID = uuid.NewString()
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(DomainEventTaskType(payload.Name), body), nil
}

// NewExpirePointsTask 创建积分过期清理任务
func NewExpirePointsTask(payload ExpirePointsPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyExpirePoints, body), nil
}

// NewExpiringSoonTask 创建积分即将过期提醒任务
func NewExpiringSoonTask(payload ExpiringSoonPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyExpiringSoon, body), nil
}

// NewPromotionSyncStatusTask 创建活动状态同步任务
func NewPromotionSyncStatusTask() (*asynq.Task, error) {
	body, err := json.Marshal(PromotionSyncStatusPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromotionSyncStatus, body), nil
}
