package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/provider"
	"github.com/mealpoint/loyalty/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLoyaltyExpirePoints, c.handleExpirePoints)
	mux.HandleFunc(queue.TaskLoyaltyExpiringSoon, c.handleExpiringSoon)
	mux.HandleFunc(queue.TaskPromotionSyncStatus, c.handlePromotionSyncStatus)
	// 按前缀匹配所有领域事件，外部通知层未接入时仅记录审计日志
	mux.HandleFunc(constants.TaskDomainEventPrefix, c.handleDomainEvent)
}

func (c *Consumer) currentTime() time.Time {
	if c == nil || c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Consumer) handleExpirePoints(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_expire_points_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ExpirePointsPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_expire_points_unmarshal_failed", "error", err)
			return err
		}
	}
	if c.LoyaltyService == nil {
		logger.Warnw("worker_expire_points_skip_service_nil")
		return nil
	}
	result, err := c.LoyaltyService.ExpirePointsBatch(c.currentTime(), payload.Limit)
	if err != nil {
		logger.Warnw("worker_expire_points_failed", "error", err)
		return err
	}
	logger.Infow("worker_expire_points_done",
		"processed", result.Processed,
		"expired", result.Expired,
		"failed", result.Failed,
		"expired_points", result.ExpiredPoints,
	)
	return nil
}

func (c *Consumer) handleExpiringSoon(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_expiring_soon_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ExpiringSoonPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_expiring_soon_unmarshal_failed", "error", err)
			return err
		}
	}
	if c.LoyaltyService == nil {
		logger.Warnw("worker_expiring_soon_skip_service_nil")
		return nil
	}
	result, err := c.LoyaltyService.NotifyExpiringSoon(c.currentTime(), payload.Days)
	if err != nil {
		logger.Warnw("worker_expiring_soon_failed", "days", payload.Days, "error", err)
		return err
	}
	logger.Infow("worker_expiring_soon_done", "customers", result.Customers, "points", result.Points)
	return nil
}

func (c *Consumer) handlePromotionSyncStatus(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_promotion_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	if c.PromotionAdminService == nil {
		logger.Warnw("worker_promotion_sync_skip_service_nil")
		return nil
	}
	result, err := c.PromotionAdminService.SyncStatuses(c.currentTime())
	if err != nil {
		logger.Warnw("worker_promotion_sync_failed", "error", err)
		return err
	}
	if result.Activated > 0 || result.Expired > 0 || result.Failed > 0 {
		logger.Infow("worker_promotion_sync_done",
			"activated", result.Activated,
			"expired", result.Expired,
			"failed", result.Failed,
		)
	}
	return nil
}

func (c *Consumer) handleDomainEvent(_ context.Context, task *asynq.Task) error {
	if task == nil {
		return nil
	}
	var payload queue.DomainEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// 事件不重试，解析失败直接丢弃
		logger.Warnw("worker_domain_event_unmarshal_failed", "type", task.Type(), "error", err)
		return nil
	}
	logger.Infow("domain_event", domainEventLogFields(payload)...)
	return nil
}

// domainEventLogFields 审计日志字段
func domainEventLogFields(payload queue.DomainEventPayload) []interface{} {
	return []interface{}{
		"event_id", payload.EventID,
		"name", payload.Name,
		"customer_id", payload.CustomerID,
		"points", payload.Points,
		"order_reference", payload.OrderReference,
		"new_level", payload.NewLevel,
		"bonus_points", payload.BonusPoints,
		"expired_points", payload.ExpiredPoints,
		"expiring_points", payload.ExpiringPoints,
		"days_remaining", payload.DaysRemaining,
		"promotion_id", payload.PromotionID,
		"discount_amount", payload.DiscountAmount,
		"occurred_at", payload.OccurredAt,
	}
}
