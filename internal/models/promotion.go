package models

import (
	"time"
)

// Promotion 促销活动
type Promotion struct {
	ID                uint                   `gorm:"primarykey" json:"id"`                                              // 主键
	Name              string                 `gorm:"not null" json:"name"`                                              // 名称
	Description       string                 `gorm:"type:text;not null;default:''" json:"description"`                  // 描述
	DiscountType      string                 `gorm:"index;not null" json:"discount_type"`                               // 折扣类型（percentage/fixed_amount/buy_x_get_y）
	DiscountValue     Money                  `gorm:"type:decimal(20,2);not null;default:0" json:"discount_value"`       // 折扣值（百分比/固定金额）
	TargetType        string                 `gorm:"index;not null" json:"target_type"`                                 // 适用范围（all_products/specific_products/categories）
	MinOrderAmount    Money                  `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"`     // 最低订单金额
	MaxDiscountAmount *Money                 `gorm:"type:decimal(20,2)" json:"max_discount_amount"`                     // 最高优惠金额（为空不限）
	MaxUsagePerUser   *int                   `json:"max_usage_per_user"`                                                // 每人限用次数（为空不限）
	MaxTotalUsage     *int                   `json:"max_total_usage"`                                                   // 总限用次数（为空不限）
	CurrentUsage      int                    `gorm:"not null;default:0" json:"current_usage"`                           // 已使用次数
	StartDate         time.Time              `gorm:"index;not null" json:"start_date"`                                  // 开始时间
	ExpirationDate    time.Time              `gorm:"index;not null" json:"expiration_date"`                             // 结束时间
	Status            string                 `gorm:"index;not null;default:'draft'" json:"status"`                      // 状态（draft/active/expired）
	Visibility        string                 `gorm:"index;not null;default:'public'" json:"visibility"`                 // 可见性（public/private）
	TargetStandard    bool                   `gorm:"not null;default:false" json:"target_standard"`                     // 面向标准会员
	TargetPremium     bool                   `gorm:"not null;default:false" json:"target_premium"`                      // 面向高级会员
	TargetGold        bool                   `gorm:"not null;default:false" json:"target_gold"`                         // 面向黄金会员
	TargetDishes      []PromotionDish        `gorm:"foreignKey:PromotionID" json:"target_dishes,omitempty"`             // 指定菜品
	TargetCategories  []PromotionCategory    `gorm:"foreignKey:PromotionID" json:"target_categories,omitempty"`         // 指定分类
	OfferedDishes     []PromotionOfferedDish `gorm:"foreignKey:PromotionID" json:"offered_dishes,omitempty"`            // 买赠赠送菜品
	CreatedAt         time.Time              `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt         time.Time              `gorm:"index" json:"updated_at"`                                           // 更新时间
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

// TargetDishIDs 返回指定菜品ID集合
func (p *Promotion) TargetDishIDs() map[uint]struct{} {
	result := make(map[uint]struct{}, len(p.TargetDishes))
	for _, item := range p.TargetDishes {
		result[item.DishID] = struct{}{}
	}
	return result
}

// TargetCategoryIDs 返回指定分类ID集合
func (p *Promotion) TargetCategoryIDs() map[uint]struct{} {
	result := make(map[uint]struct{}, len(p.TargetCategories))
	for _, item := range p.TargetCategories {
		result[item.CategoryID] = struct{}{}
	}
	return result
}

// PromotionDish 活动指定菜品
type PromotionDish struct {
	ID          uint `gorm:"primarykey" json:"-"`
	PromotionID uint `gorm:"index;not null" json:"-"`
	DishID      uint `gorm:"index;not null" json:"dish_id"`
}

// TableName 指定表名
func (PromotionDish) TableName() string {
	return "promotion_dishes"
}

// PromotionCategory 活动指定分类
type PromotionCategory struct {
	ID          uint `gorm:"primarykey" json:"-"`
	PromotionID uint `gorm:"index;not null" json:"-"`
	CategoryID  uint `gorm:"index;not null" json:"category_id"`
}

// TableName 指定表名
func (PromotionCategory) TableName() string {
	return "promotion_categories"
}

// PromotionOfferedDish 买赠活动赠送菜品
type PromotionOfferedDish struct {
	ID          uint `gorm:"primarykey" json:"-"`
	PromotionID uint `gorm:"index;not null" json:"-"`
	DishID      uint `gorm:"index;not null" json:"dish_id"`
	Quantity    int  `gorm:"not null;default:1" json:"quantity"`
}

// TableName 指定表名
func (PromotionOfferedDish) TableName() string {
	return "promotion_offered_dishes"
}
