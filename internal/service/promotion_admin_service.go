package service

import (
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"

	"github.com/shopspring/decimal"
)

// PromotionAdminService 活动管理服务
type PromotionAdminService struct {
	repo repository.PromotionRepository
}

// NewPromotionAdminService 创建活动管理服务
func NewPromotionAdminService(repo repository.PromotionRepository) *PromotionAdminService {
	return &PromotionAdminService{repo: repo}
}

// OfferedDishInput 买赠活动赠送菜品
type OfferedDishInput struct {
	DishID   uint
	Quantity int
}

// PromotionInput 创建/更新活动输入
type PromotionInput struct {
	Name              string
	Description       string
	DiscountType      string
	DiscountValue     models.Money
	TargetType        string
	MinOrderAmount    models.Money
	MaxDiscountAmount *models.Money
	MaxUsagePerUser   *int
	MaxTotalUsage     *int
	StartDate         time.Time
	ExpirationDate    time.Time
	Visibility        string
	TargetStandard    bool
	TargetPremium     bool
	TargetGold        bool
	TargetDishIDs     []uint
	TargetCategoryIDs []uint
	OfferedDishes     []OfferedDishInput
}

// PromotionStatusSyncResult 状态同步结果
type PromotionStatusSyncResult struct {
	Activated int `json:"activated"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}

// Create 创建活动，初始为草稿并立即按时间窗口流转
func (s *PromotionAdminService) Create(input PromotionInput) (*models.Promotion, error) {
	promotion := &models.Promotion{}
	if err := applyPromotionInput(promotion, input); err != nil {
		return nil, err
	}
	now := time.Now()
	promotion.Status = constants.PromotionStatusDraft
	promotion.Status = NextPromotionStatus(promotion, now)
	promotion.CurrentUsage = 0
	promotion.CreatedAt = now
	promotion.UpdatedAt = now

	if err := s.repo.Create(promotion); err != nil {
		logger.Warnw("promotion_create_failed", "name", promotion.Name, "error", err)
		return nil, ErrPromotionCreateFailed
	}
	return promotion, nil
}

// Update 更新活动，已过期活动不可修改
func (s *PromotionAdminService) Update(id uint, input PromotionInput) (*models.Promotion, error) {
	promotion, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	if promotion.Status == constants.PromotionStatusExpired {
		return nil, ErrPromotionExpired
	}
	if err := applyPromotionInput(promotion, input); err != nil {
		return nil, err
	}
	if promotion.MaxTotalUsage != nil && *promotion.MaxTotalUsage < promotion.CurrentUsage {
		return nil, ErrPromotionInvalid
	}
	now := time.Now()
	promotion.Status = NextPromotionStatus(promotion, now)
	promotion.UpdatedAt = now

	if err := s.repo.Update(promotion); err != nil {
		logger.Warnw("promotion_update_failed", "promotion_id", id, "error", err)
		return nil, ErrPromotionUpdateFailed
	}
	return s.repo.GetByID(id)
}

// Get 获取活动详情
func (s *PromotionAdminService) Get(id uint) (*models.Promotion, error) {
	promotion, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	return promotion, nil
}

// Delete 下线活动（置为过期，保留使用记录）
func (s *PromotionAdminService) Delete(id uint) error {
	promotion, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if promotion == nil {
		return ErrPromotionNotFound
	}
	if promotion.Status == constants.PromotionStatusExpired {
		return nil
	}
	if _, err := s.repo.UpdateStatus(id, promotion.Status, constants.PromotionStatusExpired); err != nil {
		return ErrPromotionUpdateFailed
	}
	return nil
}

// List 活动列表
func (s *PromotionAdminService) List(filter repository.PromotionListFilter) ([]models.Promotion, int64, error) {
	return s.repo.List(filter)
}

// SyncStatuses 按时间窗口推进草稿/生效活动的状态
func (s *PromotionAdminService) SyncStatuses(now time.Time) (*PromotionStatusSyncResult, error) {
	if now.IsZero() {
		now = time.Now()
	}
	promotions, err := s.repo.ListByStatuses([]string{
		constants.PromotionStatusDraft,
		constants.PromotionStatusActive,
	})
	if err != nil {
		return nil, err
	}
	result := &PromotionStatusSyncResult{}
	for i := range promotions {
		promotion := &promotions[i]
		next := NextPromotionStatus(promotion, now)
		if next == promotion.Status {
			continue
		}
		updated, err := s.repo.UpdateStatus(promotion.ID, promotion.Status, next)
		if err != nil {
			result.Failed++
			logger.Warnw("promotion_status_sync_failed",
				"promotion_id", promotion.ID,
				"from", promotion.Status,
				"to", next,
				"error", err,
			)
			continue
		}
		if !updated {
			continue
		}
		switch next {
		case constants.PromotionStatusActive:
			result.Activated++
		case constants.PromotionStatusExpired:
			result.Expired++
		}
	}
	return result, nil
}

// NextPromotionStatus 计算活动的下一状态，只向前流转：
// draft -> active（进入时间窗口）、draft/active -> expired（超过结束时间）
func NextPromotionStatus(promotion *models.Promotion, now time.Time) string {
	if promotion == nil {
		return ""
	}
	switch promotion.Status {
	case constants.PromotionStatusDraft:
		if promotion.ExpirationDate.Before(now) {
			return constants.PromotionStatusExpired
		}
		if !now.Before(promotion.StartDate) && now.Before(promotion.ExpirationDate) {
			return constants.PromotionStatusActive
		}
		return constants.PromotionStatusDraft
	case constants.PromotionStatusActive:
		if promotion.ExpirationDate.Before(now) {
			return constants.PromotionStatusExpired
		}
		return constants.PromotionStatusActive
	default:
		return constants.PromotionStatusExpired
	}
}

func applyPromotionInput(promotion *models.Promotion, input PromotionInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrPromotionInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	targetType := strings.ToLower(strings.TrimSpace(input.TargetType))
	if targetType == "" {
		targetType = constants.PromotionTargetAllProducts
	}
	visibility := strings.ToLower(strings.TrimSpace(input.Visibility))
	if visibility == "" {
		visibility = constants.PromotionVisibilityPublic
	}

	value := input.DiscountValue.Decimal
	switch discountType {
	case constants.PromotionDiscountPercentage:
		if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(decimal.NewFromInt(100)) {
			return ErrPromotionInvalid
		}
	case constants.PromotionDiscountFixedAmount:
		if value.LessThanOrEqual(decimal.Zero) {
			return ErrPromotionInvalid
		}
	case constants.PromotionDiscountBuyXGetY:
		if value.IsNegative() {
			return ErrPromotionInvalid
		}
	default:
		return ErrPromotionInvalid
	}

	switch targetType {
	case constants.PromotionTargetAllProducts, constants.PromotionTargetSpecificProducts, constants.PromotionTargetCategories:
	default:
		return ErrPromotionInvalid
	}
	if visibility != constants.PromotionVisibilityPublic && visibility != constants.PromotionVisibilityPrivate {
		return ErrPromotionInvalid
	}
	if input.MinOrderAmount.Decimal.IsNegative() {
		return ErrPromotionInvalid
	}
	if input.MaxDiscountAmount != nil && !input.MaxDiscountAmount.Decimal.IsPositive() {
		return ErrPromotionInvalid
	}
	if input.MaxUsagePerUser != nil && *input.MaxUsagePerUser <= 0 {
		return ErrPromotionInvalid
	}
	if input.MaxTotalUsage != nil && *input.MaxTotalUsage <= 0 {
		return ErrPromotionInvalid
	}
	if input.StartDate.IsZero() || input.ExpirationDate.IsZero() || !input.ExpirationDate.After(input.StartDate) {
		return ErrPromotionInvalidDates
	}

	dishIDs := normalizeIDs(input.TargetDishIDs)
	categoryIDs := normalizeIDs(input.TargetCategoryIDs)
	if targetType == constants.PromotionTargetSpecificProducts && len(dishIDs) == 0 {
		return ErrPromotionTargetsRequired
	}
	if targetType == constants.PromotionTargetCategories && len(categoryIDs) == 0 {
		return ErrPromotionTargetsRequired
	}
	if visibility == constants.PromotionVisibilityPrivate && !input.TargetStandard && !input.TargetPremium && !input.TargetGold {
		return ErrPromotionLevelTargetsRequired
	}

	offered := make([]models.PromotionOfferedDish, 0, len(input.OfferedDishes))
	for _, item := range input.OfferedDishes {
		if item.DishID == 0 || item.Quantity <= 0 {
			continue
		}
		offered = append(offered, models.PromotionOfferedDish{DishID: item.DishID, Quantity: item.Quantity})
	}
	if discountType == constants.PromotionDiscountBuyXGetY && len(offered) == 0 {
		return ErrPromotionOfferedDishRequired
	}

	promotion.Name = name
	promotion.Description = strings.TrimSpace(input.Description)
	promotion.DiscountType = discountType
	promotion.DiscountValue = models.NewMoneyFromDecimal(value)
	promotion.TargetType = targetType
	promotion.MinOrderAmount = models.NewMoneyFromDecimal(input.MinOrderAmount.Decimal)
	promotion.MaxDiscountAmount = nil
	if input.MaxDiscountAmount != nil {
		maxDiscount := models.NewMoneyFromDecimal(input.MaxDiscountAmount.Decimal)
		promotion.MaxDiscountAmount = &maxDiscount
	}
	promotion.MaxUsagePerUser = input.MaxUsagePerUser
	promotion.MaxTotalUsage = input.MaxTotalUsage
	promotion.StartDate = input.StartDate
	promotion.ExpirationDate = input.ExpirationDate
	promotion.Visibility = visibility
	promotion.TargetStandard = input.TargetStandard
	promotion.TargetPremium = input.TargetPremium
	promotion.TargetGold = input.TargetGold

	promotion.TargetDishes = nil
	promotion.TargetCategories = nil
	if targetType == constants.PromotionTargetSpecificProducts {
		promotion.TargetDishes = make([]models.PromotionDish, 0, len(dishIDs))
		for _, dishID := range dishIDs {
			promotion.TargetDishes = append(promotion.TargetDishes, models.PromotionDish{DishID: dishID})
		}
	}
	if targetType == constants.PromotionTargetCategories {
		promotion.TargetCategories = make([]models.PromotionCategory, 0, len(categoryIDs))
		for _, categoryID := range categoryIDs {
			promotion.TargetCategories = append(promotion.TargetCategories, models.PromotionCategory{CategoryID: categoryID})
		}
	}
	promotion.OfferedDishes = nil
	if discountType == constants.PromotionDiscountBuyXGetY {
		promotion.OfferedDishes = offered
	}
	return nil
}

func normalizeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
