package repository

import "time"

// LoyaltyEntryListFilter 查询积分流水列表的过滤条件
type LoyaltyEntryListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	Type        string
	IsUsed      string
	OrderID     uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PromotionListFilter 查询活动列表的过滤条件
type PromotionListFilter struct {
	Page         int
	PageSize     int
	ID           uint
	Keyword      string
	Status       string
	Visibility   string
	TargetType   string
	DiscountType string
	DishID       uint
	CategoryID   uint
	DateFrom     *time.Time
	DateTo       *time.Time
}

// PromotionUsageListFilter 查询活动使用记录列表的过滤条件
type PromotionUsageListFilter struct {
	Page        int
	PageSize    int
	PromotionID uint
	CustomerID  uint
}
