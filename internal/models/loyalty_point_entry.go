package models

import (
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
)

// LoyaltyPointEntry 积分流水（只追加，不删除）
type LoyaltyPointEntry struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                     // 主键
	CustomerID uint       `gorm:"index;not null" json:"customer_id"`                        // 顾客ID
	Points     int64      `gorm:"not null" json:"points"`                                   // 积分数量
	Type       string     `gorm:"index;not null" json:"type"`                               // 类型（earned/bonus/redeemed/expired）
	PointsUsed int64      `gorm:"not null;default:0" json:"points_used"`                    // 已消耗积分
	IsUsed     string     `gorm:"index;not null;default:'no'" json:"is_used"`               // 消耗状态（no/partial/yes）
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at"`                                  // 过期时间（为空表示永不过期）
	OrderID    *uint      `gorm:"index" json:"order_id"`                                    // 关联订单ID
	Reason     string     `gorm:"type:text;not null;default:''" json:"reason"`              // 原因
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                               // 更新时间
}

// TableName 指定表名
func (LoyaltyPointEntry) TableName() string {
	return "loyalty_point_entries"
}

// Remaining 返回未消耗积分
func (e *LoyaltyPointEntry) Remaining() int64 {
	if e == nil {
		return 0
	}
	remaining := e.Points - e.PointsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Consume 消耗积分并刷新消耗状态，返回实际消耗数量
func (e *LoyaltyPointEntry) Consume(points int64) int64 {
	if e == nil || points <= 0 {
		return 0
	}
	take := e.Remaining()
	if points < take {
		take = points
	}
	e.PointsUsed += take
	e.IsUsed = ResolveUsedState(e.Points, e.PointsUsed)
	return take
}

// ResolveUsedState 根据已消耗积分计算消耗状态
func ResolveUsedState(points, used int64) string {
	switch {
	case used <= 0:
		return constants.LoyaltyEntryUsedNo
	case used >= points:
		return constants.LoyaltyEntryUsedYes
	default:
		return constants.LoyaltyEntryUsedPartial
	}
}
