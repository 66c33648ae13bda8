package models

import (
	"time"

	"gorm.io/datatypes"
)

// PromotionUsageItem 使用活动时的购物车明细快照
type PromotionUsageItem struct {
	DishID   uint   `json:"dish_id"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// PromotionUsage 活动使用记录（只追加）
type PromotionUsage struct {
	ID             uint                                    `gorm:"primarykey" json:"id"`                                          // 主键
	PromotionID    uint                                    `gorm:"index:idx_promotion_usage_customer;not null" json:"promotion_id"` // 活动ID
	CustomerID     uint                                    `gorm:"index:idx_promotion_usage_customer;not null" json:"customer_id"`  // 顾客ID
	OrderID        uint                                    `gorm:"index;not null" json:"order_id"`                                // 订单ID
	DiscountAmount Money                                   `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠金额
	OriginalAmount Money                                   `gorm:"type:decimal(20,2);not null;default:0" json:"original_amount"`  // 原始金额
	FinalAmount    Money                                   `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`     // 实付金额
	ItemsSnapshot  datatypes.JSONSlice[PromotionUsageItem] `json:"items_snapshot"`                                                // 购物车快照
	CreatedAt      time.Time                               `gorm:"index" json:"created_at"`                                       // 创建时间
}

// TableName 指定表名
func (PromotionUsage) TableName() string {
	return "promotion_usages"
}
