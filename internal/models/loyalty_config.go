package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoyaltyConfig 积分规则配置（仅一条生效）
type LoyaltyConfig struct {
	ID                      uint            `gorm:"primarykey" json:"id"`                                                  // 主键
	PointsPerCurrencyUnit   decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"points_per_currency_unit"`           // 每单位金额获得积分
	PointsExpirationDays    *int            `json:"points_expiration_days"`                                                // 积分有效天数（为空表示永不过期）
	MinimumRedemptionPoints int64           `gorm:"not null;default:0" json:"minimum_redemption_points"`                   // 最低兑换积分
	PointValueInCurrency    Money           `gorm:"type:decimal(20,2);not null;default:0" json:"point_value_in_currency"`  // 每积分抵扣金额
	StandardThreshold       int64           `gorm:"not null;default:0" json:"standard_threshold"`                          // 标准会员门槛
	PremiumThreshold        int64           `gorm:"not null;default:0" json:"premium_threshold"`                           // 高级会员门槛
	GoldThreshold           int64           `gorm:"not null;default:0" json:"gold_threshold"`                              // 黄金会员门槛
	IsActive                bool            `gorm:"index;not null;default:true" json:"is_active"`                          // 是否生效
	CreatedAt               time.Time       `json:"created_at"`                                                            // 创建时间
	UpdatedAt               time.Time       `json:"updated_at"`                                                            // 更新时间
}

// TableName 指定表名
func (LoyaltyConfig) TableName() string {
	return "loyalty_configs"
}

// ExpiresAtFrom 按配置计算积分过期时间
func (c *LoyaltyConfig) ExpiresAtFrom(now time.Time) *time.Time {
	if c == nil || c.PointsExpirationDays == nil || *c.PointsExpirationDays <= 0 {
		return nil
	}
	expiresAt := now.AddDate(0, 0, *c.PointsExpirationDays)
	return &expiresAt
}
