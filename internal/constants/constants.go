package constants

// 积分流水类型常量
const (
	LoyaltyEntryTypeEarned   = "earned"
	LoyaltyEntryTypeBonus    = "bonus"
	LoyaltyEntryTypeRedeemed = "redeemed"
	LoyaltyEntryTypeExpired  = "expired"
)

// 积分流水消耗状态常量
const (
	LoyaltyEntryUsedNo      = "no"
	LoyaltyEntryUsedPartial = "partial"
	LoyaltyEntryUsedYes     = "yes"
)

// 会员等级常量（空字符串表示未定级）
const (
	LoyaltyLevelNone     = ""
	LoyaltyLevelStandard = "standard"
	LoyaltyLevelPremium  = "premium"
	LoyaltyLevelGold     = "gold"
)

// 升级赠送积分
const (
	LoyaltyLevelBonusStandard = 100
	LoyaltyLevelBonusPremium  = 150
	LoyaltyLevelBonusGold     = 200
)

// 积分原因文案
const (
	LoyaltyReasonLevelAutoUpdate = "automatic threshold update"
	LoyaltyReasonLevelBonus      = "level up bonus"
	LoyaltyReasonOrderEarned     = "order points"
	LoyaltyReasonRedeemed        = "points redemption"
)

// 活动折扣类型常量
const (
	PromotionDiscountPercentage  = "percentage"
	PromotionDiscountFixedAmount = "fixed_amount"
	PromotionDiscountBuyXGetY    = "buy_x_get_y"
)

// 活动适用范围常量
const (
	PromotionTargetAllProducts      = "all_products"
	PromotionTargetSpecificProducts = "specific_products"
	PromotionTargetCategories       = "categories"
)

// 活动状态常量（只允许向前流转）
const (
	PromotionStatusDraft   = "draft"
	PromotionStatusActive  = "active"
	PromotionStatusExpired = "expired"
)

// 活动可见性常量
const (
	PromotionVisibilityPublic  = "public"
	PromotionVisibilityPrivate = "private"
)

// 领域事件名称
const (
	EventPointsAdded        = "points_added"
	EventPointsRedeemed     = "points_redeemed"
	EventLevelUp            = "level_up"
	EventPointsExpiringSoon = "points_expiring_soon"
	EventPointsExpired      = "points_expired"
	EventPromotionUsed      = "promotion_used"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
	QueueEvents   = "events"
)

// 异步任务类型
const (
	TaskLoyaltyExpirePoints = "loyalty:expire_points"
	TaskLoyaltyExpiringSoon = "loyalty:expiring_soon"
	TaskPromotionSyncStatus = "promotion:sync_status"
	TaskDomainEventPrefix   = "loyalty:event:"
)

// 调度默认值
const (
	DefaultExpiringSoonDays   = 7
	DefaultConfigCacheSeconds = 300
)
