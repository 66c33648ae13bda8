package service

import (
	"fmt"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"

	"github.com/shopspring/decimal"
)

// 折扣不可用原因
const (
	DiscountReasonNotFound        = "promotion not found"
	DiscountReasonInactive        = "promotion is not active"
	DiscountReasonInvalidAmount   = "invalid order amount"
	DiscountReasonUnsupportedType = "unsupported discount type"
)

// PromotionService 活动折扣服务（计算、覆盖判断、使用）
type PromotionService struct {
	promotionRepo repository.PromotionRepository
	usageRepo     repository.PromotionUsageRepository
	customerRepo  repository.CustomerRepository
	dishRepo      repository.DishRepository
	events        EventSink
}

// DiscountItem 购物车明细
type DiscountItem struct {
	DishID   uint         `json:"dish_id"`
	Quantity int          `json:"quantity"`
	Price    models.Money `json:"price"`
}

// DiscountResult 折扣计算结果
type DiscountResult struct {
	Applicable     bool         `json:"applicable"`
	Reason         string       `json:"reason,omitempty"`
	DiscountAmount models.Money `json:"discount_amount"`
	FinalAmount    models.Money `json:"final_amount"`
	OriginalAmount models.Money `json:"original_amount"`
}

// DishPromotionCoverage 菜品活动覆盖结果
type DishPromotionCoverage struct {
	DishID     uint               `json:"dish_id"`
	Covered    bool               `json:"covered"`
	Promotions []models.Promotion `json:"promotions"`
}

// NewPromotionService 创建活动折扣服务
func NewPromotionService(
	promotionRepo repository.PromotionRepository,
	usageRepo repository.PromotionUsageRepository,
	customerRepo repository.CustomerRepository,
	dishRepo repository.DishRepository,
	events EventSink,
) *PromotionService {
	return &PromotionService{
		promotionRepo: promotionRepo,
		usageRepo:     usageRepo,
		customerRepo:  customerRepo,
		dishRepo:      dishRepo,
		events:        events,
	}
}

// CalculateDiscount 计算订单折扣，不修改任何数据
func (s *PromotionService) CalculateDiscount(promotionID uint, orderAmount models.Money, items []DiscountItem) (*DiscountResult, error) {
	promotion, err := s.promotionRepo.GetByID(promotionID)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		result := notApplicable(orderAmount.Decimal, DiscountReasonNotFound)
		return &result, nil
	}
	result := EvaluateDiscount(promotion, orderAmount, items, time.Now())
	return &result, nil
}

// discountEvaluator 按折扣类型计算原始折扣金额（未封顶）
type discountEvaluator func(promotion *models.Promotion, orderAmount decimal.Decimal, items []DiscountItem) decimal.Decimal

var discountEvaluators = map[string]discountEvaluator{
	constants.PromotionDiscountPercentage:  evaluatePercentageDiscount,
	constants.PromotionDiscountFixedAmount: evaluateFixedDiscount,
	constants.PromotionDiscountBuyXGetY:    evaluateBuyXGetYDiscount,
}

func evaluatePercentageDiscount(promotion *models.Promotion, orderAmount decimal.Decimal, _ []DiscountItem) decimal.Decimal {
	return orderAmount.Mul(promotion.DiscountValue.Decimal).Div(decimal.NewFromInt(100))
}

func evaluateFixedDiscount(promotion *models.Promotion, _ decimal.Decimal, _ []DiscountItem) decimal.Decimal {
	return promotion.DiscountValue.Decimal
}

// evaluateBuyXGetYDiscount 赠品按购物车中同菜品单价计价，购物车无该菜品时不计
func evaluateBuyXGetYDiscount(promotion *models.Promotion, _ decimal.Decimal, items []DiscountItem) decimal.Decimal {
	total := decimal.Zero
	for _, offered := range promotion.OfferedDishes {
		if offered.Quantity <= 0 {
			continue
		}
		for _, item := range items {
			if item.DishID != offered.DishID {
				continue
			}
			total = total.Add(item.Price.Decimal.Mul(decimal.NewFromInt(int64(offered.Quantity))))
			break
		}
	}
	return total
}

// EvaluateDiscount 纯函数：校验状态、时间窗口与门槛后计算折扣，折扣不超过封顶值与订单金额
func EvaluateDiscount(promotion *models.Promotion, orderAmount models.Money, items []DiscountItem, now time.Time) DiscountResult {
	amount := orderAmount.Decimal
	if promotion == nil {
		return notApplicable(amount, DiscountReasonNotFound)
	}
	if amount.IsNegative() {
		return notApplicable(amount, DiscountReasonInvalidAmount)
	}
	if promotion.Status != constants.PromotionStatusActive {
		return notApplicable(amount, DiscountReasonInactive)
	}
	if now.Before(promotion.StartDate) || now.After(promotion.ExpirationDate) {
		return notApplicable(amount, DiscountReasonInactive)
	}
	if amount.LessThan(promotion.MinOrderAmount.Decimal) {
		return notApplicable(amount, fmt.Sprintf("minimum order amount is %s", promotion.MinOrderAmount.StringFixed(2)))
	}
	evaluator, ok := discountEvaluators[promotion.DiscountType]
	if !ok {
		return notApplicable(amount, DiscountReasonUnsupportedType)
	}

	discount := models.NewMoneyFromDecimal(evaluator(promotion, amount, items)).CapAt(promotion.MaxDiscountAmount).Decimal
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	discount = discount.Round(2)
	return DiscountResult{
		Applicable:     true,
		DiscountAmount: models.NewMoneyFromDecimal(discount),
		FinalAmount:    models.NewMoneyFromDecimal(amount.Sub(discount)),
		OriginalAmount: models.NewMoneyFromDecimal(amount),
	}
}

func notApplicable(amount decimal.Decimal, reason string) DiscountResult {
	return DiscountResult{
		Applicable:     false,
		Reason:         reason,
		DiscountAmount: models.NewMoneyFromDecimal(decimal.Zero),
		FinalAmount:    models.NewMoneyFromDecimal(amount),
		OriginalAmount: models.NewMoneyFromDecimal(amount),
	}
}

// PromotionVisibleToLevel 判断活动对指定会员等级是否可见
func PromotionVisibleToLevel(promotion *models.Promotion, level string) bool {
	if promotion == nil {
		return false
	}
	if promotion.Visibility != constants.PromotionVisibilityPrivate {
		return true
	}
	switch level {
	case constants.LoyaltyLevelStandard:
		return promotion.TargetStandard
	case constants.LoyaltyLevelPremium:
		return promotion.TargetPremium
	case constants.LoyaltyLevelGold:
		return promotion.TargetGold
	default:
		return false
	}
}

// promotionCoversDish 判断活动范围是否覆盖菜品
func promotionCoversDish(promotion *models.Promotion, dishID uint, dish *models.Dish) bool {
	switch promotion.TargetType {
	case constants.PromotionTargetAllProducts:
		return true
	case constants.PromotionTargetSpecificProducts:
		_, ok := promotion.TargetDishIDs()[dishID]
		return ok
	case constants.PromotionTargetCategories:
		if dish == nil || dish.CategoryID == 0 {
			return false
		}
		_, ok := promotion.TargetCategoryIDs()[dish.CategoryID]
		return ok
	default:
		return false
	}
}

// IsDishInActivePromotion 判断菜品是否处于生效活动中；
// level 为空时只匹配公开活动
func (s *PromotionService) IsDishInActivePromotion(dishID uint, level *string) (*DishPromotionCoverage, error) {
	if dishID == 0 {
		return nil, ErrDishNotFound
	}
	dish, err := s.dishRepo.GetByID(dishID)
	if err != nil {
		return nil, err
	}
	promotions, err := s.promotionRepo.ListActive(time.Now())
	if err != nil {
		return nil, err
	}
	coverage := &DishPromotionCoverage{DishID: dishID, Promotions: make([]models.Promotion, 0)}
	for i := range promotions {
		promotion := &promotions[i]
		if level == nil {
			if promotion.Visibility != constants.PromotionVisibilityPublic {
				continue
			}
		} else if !PromotionVisibleToLevel(promotion, *level) {
			continue
		}
		if !promotionCoversDish(promotion, dishID, dish) {
			continue
		}
		coverage.Promotions = append(coverage.Promotions, *promotion)
	}
	coverage.Covered = len(coverage.Promotions) > 0
	return coverage, nil
}

// ListAvailableForCustomer 获取顾客当前可见的生效活动
func (s *PromotionService) ListAvailableForCustomer(customerID uint) ([]models.Promotion, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	promotions, err := s.promotionRepo.ListActive(time.Now())
	if err != nil {
		return nil, err
	}
	result := make([]models.Promotion, 0, len(promotions))
	for i := range promotions {
		if PromotionVisibleToLevel(&promotions[i], customer.LoyaltyLevel) {
			result = append(result, promotions[i])
		}
	}
	return result, nil
}
