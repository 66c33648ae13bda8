package service

import (
	"fmt"
	"time"

	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
	"github.com/mealpoint/loyalty/internal/repository"

	"gorm.io/gorm"
)

// PromotionEligibility 活动可用性判断结果
type PromotionEligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// UsePromotionInput 使用活动输入
type UsePromotionInput struct {
	PromotionID uint
	CustomerID  uint
	OrderID     uint
	OrderAmount models.Money
	Items       []DiscountItem
}

// PromotionUsageResult 使用活动结果
type PromotionUsageResult struct {
	Usage          *models.PromotionUsage `json:"usage"`
	DiscountAmount models.Money           `json:"discount_amount"`
	FinalAmount    models.Money           `json:"final_amount"`
}

// CanCustomerUsePromotion 判断顾客是否可使用活动（只读）
func (s *PromotionService) CanCustomerUsePromotion(promotionID, customerID uint) (*PromotionEligibility, error) {
	promotion, err := s.promotionRepo.GetByID(promotionID)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return &PromotionEligibility{Allowed: false, Reason: ErrPromotionNotFound.Error()}, nil
	}
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return &PromotionEligibility{Allowed: false, Reason: ErrCustomerNotFound.Error()}, nil
	}
	if err := checkPromotionEligibility(s.usageRepo, promotion, customer); err != nil {
		if ErrorKind(err) == ErrorKindInternal {
			return nil, err
		}
		return &PromotionEligibility{Allowed: false, Reason: err.Error()}, nil
	}
	return &PromotionEligibility{Allowed: true}, nil
}

// checkPromotionEligibility 依次校验每人次数、总次数、会员等级可见性
func checkPromotionEligibility(usageRepo repository.PromotionUsageRepository, promotion *models.Promotion, customer *models.Customer) error {
	if promotion.MaxUsagePerUser != nil {
		count, err := usageRepo.CountByCustomer(promotion.ID, customer.ID)
		if err != nil {
			return err
		}
		if count >= int64(*promotion.MaxUsagePerUser) {
			return ErrPromotionPerUserLimit
		}
	}
	if promotion.MaxTotalUsage != nil && promotion.CurrentUsage >= *promotion.MaxTotalUsage {
		return ErrPromotionUsageLimit
	}
	if !PromotionVisibleToLevel(promotion, customer.LoyaltyLevel) {
		return ErrPromotionLevelMismatch
	}
	return nil
}

// UsePromotion 使用活动：锁定活动后复核资格、写入使用记录并条件累加次数，
// 总次数上限在并发下也不会被突破
func (s *PromotionService) UsePromotion(input UsePromotionInput) (*PromotionUsageResult, error) {
	if input.PromotionID == 0 {
		return nil, ErrPromotionNotFound
	}
	if input.CustomerID == 0 {
		return nil, ErrCustomerNotFound
	}

	now := time.Now()
	result := &PromotionUsageResult{}
	err := s.promotionRepo.Transaction(func(tx *gorm.DB) error {
		promotionRepo := s.promotionRepo.WithTx(tx)
		promotion, err := promotionRepo.GetByIDForUpdate(input.PromotionID)
		if err != nil {
			return err
		}
		if promotion == nil {
			return ErrPromotionNotFound
		}
		customer, err := s.customerRepo.WithTx(tx).GetByID(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		usageRepo := s.usageRepo.WithTx(tx)
		if err := checkPromotionEligibility(usageRepo, promotion, customer); err != nil {
			return err
		}

		discount := EvaluateDiscount(promotion, input.OrderAmount, input.Items, now)
		if !discount.Applicable {
			return fmt.Errorf("%w: %s", ErrPromotionNotApplicable, discount.Reason)
		}

		usage := &models.PromotionUsage{
			PromotionID:    promotion.ID,
			CustomerID:     customer.ID,
			OrderID:        input.OrderID,
			DiscountAmount: discount.DiscountAmount,
			OriginalAmount: discount.OriginalAmount,
			FinalAmount:    discount.FinalAmount,
			ItemsSnapshot:  buildUsageSnapshot(input.Items),
			CreatedAt:      now,
		}
		if err := usageRepo.Create(usage); err != nil {
			return err
		}
		incremented, err := promotionRepo.IncrementUsage(promotion.ID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrPromotionUsageLimit
		}
		result.Usage = usage
		result.DiscountAmount = discount.DiscountAmount
		result.FinalAmount = discount.FinalAmount
		return nil
	})
	if err != nil {
		if ErrorKind(err) == ErrorKindInternal {
			logger.Warnw("promotion_use_failed",
				"promotion_id", input.PromotionID,
				"customer_id", input.CustomerID,
				"order_id", input.OrderID,
				"error", err,
			)
		}
		return nil, err
	}
	publishEvents(s.events, []queue.DomainEventPayload{newPromotionUsedEvent(result.Usage, now)})
	return result, nil
}

// ListUsages 查询活动使用记录
func (s *PromotionService) ListUsages(filter repository.PromotionUsageListFilter) ([]models.PromotionUsage, int64, error) {
	return s.usageRepo.List(filter)
}

func buildUsageSnapshot(items []DiscountItem) []models.PromotionUsageItem {
	snapshot := make([]models.PromotionUsageItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, models.PromotionUsageItem{
			DishID:   item.DishID,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
		})
	}
	return snapshot
}
