package models

import (
	"time"
)

// Customer 顾客（仅包含积分相关字段）
type Customer struct {
	ID              uint       `gorm:"primarykey" json:"id"`                              // 主键
	Name            string     `gorm:"default:''" json:"name"`                            // 名称
	Email           string     `gorm:"index;default:''" json:"email"`                     // 邮箱
	TotalPoints     int64      `gorm:"not null;default:0" json:"total_points"`            // 可用积分缓存余额
	LifetimePoints  int64      `gorm:"not null;default:0" json:"lifetime_points"`         // 累计获得积分（只增不减）
	LoyaltyLevel    string     `gorm:"index;not null;default:''" json:"loyalty_level"`    // 会员等级（空表示未定级）
	LastLevelUpdate *time.Time `json:"last_level_update"`                                 // 最近一次等级变更时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
