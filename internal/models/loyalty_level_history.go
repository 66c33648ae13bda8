package models

import "time"

// LoyaltyLevelHistory 会员等级变更记录（只追加）
type LoyaltyLevelHistory struct {
	ID            uint      `gorm:"primarykey" json:"id"`                         // 主键
	CustomerID    uint      `gorm:"index;not null" json:"customer_id"`            // 顾客ID
	PreviousLevel string    `gorm:"not null;default:''" json:"previous_level"`    // 变更前等级
	NewLevel      string    `gorm:"not null" json:"new_level"`                    // 变更后等级
	PointsAtTime  int64     `gorm:"not null;default:0" json:"points_at_time"`     // 变更时累计积分
	Reason        string    `gorm:"not null;default:''" json:"reason"`            // 原因
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                      // 创建时间
}

// TableName 指定表名
func (LoyaltyLevelHistory) TableName() string {
	return "loyalty_level_histories"
}
