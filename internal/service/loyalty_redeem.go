package service

import (
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
	"github.com/mealpoint/loyalty/internal/repository"

	"gorm.io/gorm"
)

// redemptionTypeOrder 兑换时先消耗赠送积分，再消耗获得积分
var redemptionTypeOrder = []string{
	constants.LoyaltyEntryTypeBonus,
	constants.LoyaltyEntryTypeEarned,
}

// RedeemPointsInput 积分兑换输入
type RedeemPointsInput struct {
	CustomerID uint
	Points     int64
	Reason     string
	OrderID    *uint
}

// RedemptionAllocation 单条流水的扣减明细
type RedemptionAllocation struct {
	EntryID         uint   `json:"entry_id"`
	Type            string `json:"type"`
	PointsUsed      int64  `json:"points_used"`
	PointsRemaining int64  `json:"points_remaining"`
}

// RedemptionResult 积分兑换结果
type RedemptionResult struct {
	Redemption        *models.LoyaltyPointEntry `json:"redemption"`
	UsedPointsDetails []RedemptionAllocation    `json:"used_points_details"`
	TotalPointsUsed   int64                     `json:"total_points_used"`
	AmountValue       models.Money              `json:"amount_value"`
}

// AvailablePointEntry 可用积分流水
type AvailablePointEntry struct {
	EntryID    uint       `json:"entry_id"`
	Type       string     `json:"type"`
	Points     int64      `json:"points"`
	PointsUsed int64      `json:"points_used"`
	Remaining  int64      `json:"remaining"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AvailablePointsSummary 可用积分明细（按兑换顺序）
type AvailablePointsSummary struct {
	CustomerID      uint                  `json:"customer_id"`
	TotalPoints     int64                 `json:"total_points"`
	AvailablePoints int64                 `json:"available_points"`
	BonusPoints     int64                 `json:"bonus_points"`
	EarnedPoints    int64                 `json:"earned_points"`
	Entries         []AvailablePointEntry `json:"entries"`
}

// RedeemPoints 兑换积分：锁定顾客后按顺序扣减流水，失败时整体回滚
func (s *LoyaltyService) RedeemPoints(input RedeemPointsInput) (*RedemptionResult, error) {
	if input.CustomerID == 0 {
		return nil, ErrCustomerNotFound
	}
	if input.Points <= 0 {
		return nil, ErrLoyaltyInvalidPoints
	}
	cfg, err := s.configSvc.GetActiveConfig()
	if err != nil {
		return nil, err
	}
	if input.Points < cfg.MinimumRedemptionPoints {
		return nil, ErrLoyaltyBelowMinimumRedemption
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = constants.LoyaltyReasonRedeemed
	}

	now := time.Now()
	result := &RedemptionResult{}
	var events []queue.DomainEventPayload
	err = s.loyaltyRepo.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.WithTx(tx).GetByIDForUpdate(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		if customer.TotalPoints < input.Points {
			return ErrLoyaltyInsufficientPoints
		}

		details, err := s.allocateTx(tx, customer.ID, input.Points, now)
		if err != nil {
			return err
		}

		redemption := &models.LoyaltyPointEntry{
			CustomerID: customer.ID,
			Points:     input.Points,
			Type:       constants.LoyaltyEntryTypeRedeemed,
			PointsUsed: input.Points,
			IsUsed:     constants.LoyaltyEntryUsedYes,
			OrderID:    input.OrderID,
			Reason:     reason,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.loyaltyRepo.WithTx(tx).CreateEntry(redemption); err != nil {
			return ErrLoyaltyUpdateFailed
		}

		customer.TotalPoints -= input.Points
		customer.UpdatedAt = now
		if err := s.customerRepo.WithTx(tx).Update(customer); err != nil {
			return ErrLoyaltyUpdateFailed
		}
		events = append(events, newPointsRedeemedEvent(redemption, now))

		levelEvents, err := s.applyLevelProgressionTx(tx, customer, cfg, now)
		if err != nil {
			return err
		}
		events = append(events, levelEvents...)

		result.Redemption = redemption
		result.UsedPointsDetails = details
		result.TotalPointsUsed = input.Points
		return nil
	})
	if err != nil {
		return nil, err
	}
	if value, err := AmountForPoints(cfg, result.TotalPointsUsed); err == nil {
		result.AmountValue = value
	}
	publishEvents(s.events, events)
	return result, nil
}

// allocateTx 按类型顺序与到期顺序扣减流水，可用积分不足时返回错误
func (s *LoyaltyService) allocateTx(tx *gorm.DB, customerID uint, points int64, now time.Time) ([]RedemptionAllocation, error) {
	repo := s.loyaltyRepo.WithTx(tx)
	remaining := points
	details := make([]RedemptionAllocation, 0)
	for _, entryType := range redemptionTypeOrder {
		if remaining <= 0 {
			break
		}
		entries, err := repo.ListAvailableEntries(customerID, entryType, now)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			if remaining <= 0 {
				break
			}
			entry := &entries[i]
			taken := entry.Consume(remaining)
			if taken <= 0 {
				continue
			}
			entry.UpdatedAt = now
			if err := repo.UpdateEntry(entry); err != nil {
				return nil, ErrLoyaltyUpdateFailed
			}
			remaining -= taken
			details = append(details, RedemptionAllocation{
				EntryID:         entry.ID,
				Type:            entry.Type,
				PointsUsed:      taken,
				PointsRemaining: entry.Remaining(),
			})
		}
	}
	if remaining > 0 {
		logger.Warnw("loyalty_redeem_allocation_short",
			"customer_id", customerID,
			"requested", points,
			"missing", remaining,
		)
		return nil, ErrLoyaltyInsufficientAvailable
	}
	return details, nil
}

// GetAvailablePoints 查询可用积分明细
func (s *LoyaltyService) GetAvailablePoints(customerID uint) (*AvailablePointsSummary, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	now := time.Now()
	summary := &AvailablePointsSummary{
		CustomerID:  customer.ID,
		TotalPoints: customer.TotalPoints,
		Entries:     make([]AvailablePointEntry, 0),
	}
	for _, entryType := range redemptionTypeOrder {
		entries, err := s.loyaltyRepo.ListAvailableEntries(customer.ID, entryType, now)
		if err != nil {
			return nil, err
		}
		summary.Entries = appendAvailableEntries(summary, entries)
	}
	return summary, nil
}

func appendAvailableEntries(summary *AvailablePointsSummary, entries []models.LoyaltyPointEntry) []AvailablePointEntry {
	result := summary.Entries
	for i := range entries {
		entry := &entries[i]
		remaining := entry.Remaining()
		if remaining <= 0 {
			continue
		}
		summary.AvailablePoints += remaining
		if entry.Type == constants.LoyaltyEntryTypeBonus {
			summary.BonusPoints += remaining
		} else {
			summary.EarnedPoints += remaining
		}
		result = append(result, AvailablePointEntry{
			EntryID:    entry.ID,
			Type:       entry.Type,
			Points:     entry.Points,
			PointsUsed: entry.PointsUsed,
			Remaining:  remaining,
			ExpiresAt:  entry.ExpiresAt,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return result
}

// ListRedemptions 查询顾客兑换记录
func (s *LoyaltyService) ListRedemptions(customerID uint, page, pageSize int) ([]models.LoyaltyPointEntry, int64, error) {
	return s.loyaltyRepo.ListEntries(repository.LoyaltyEntryListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Type:       constants.LoyaltyEntryTypeRedeemed,
	})
}
