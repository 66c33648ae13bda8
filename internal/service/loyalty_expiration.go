package service

import (
	"math"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/queue"

	"gorm.io/gorm"
)

// ExpirationResult 过期清理结果
type ExpirationResult struct {
	Processed     int   `json:"processed"`
	Expired       int   `json:"expired"`
	Failed        int   `json:"failed"`
	ExpiredPoints int64 `json:"expired_points"`
}

// ExpiringSoonResult 即将过期提醒结果
type ExpiringSoonResult struct {
	Customers int   `json:"customers"`
	Points    int64 `json:"points"`
}

// ExpirePoints 清理已到期积分，每条流水独立事务，单条失败不影响其他流水
func (s *LoyaltyService) ExpirePoints(now time.Time) (*ExpirationResult, error) {
	return s.ExpirePointsBatch(now, 0)
}

// ExpirePointsBatch 清理已到期积分，limit<=0 表示不限
func (s *LoyaltyService) ExpirePointsBatch(now time.Time, limit int) (*ExpirationResult, error) {
	if now.IsZero() {
		now = time.Now()
	}
	candidates, err := s.loyaltyRepo.ListExpiredCandidates(now, limit)
	if err != nil {
		return nil, err
	}
	result := &ExpirationResult{}
	for _, candidate := range candidates {
		result.Processed++
		expired, err := s.expireEntry(candidate.ID, candidate.CustomerID, now)
		if err != nil {
			result.Failed++
			logger.Warnw("loyalty_expire_entry_failed",
				"entry_id", candidate.ID,
				"customer_id", candidate.CustomerID,
				"error", err,
			)
			continue
		}
		if expired > 0 {
			result.Expired++
			result.ExpiredPoints += expired
		}
	}
	if result.Processed > 0 {
		logger.Infow("loyalty_expire_points_done",
			"processed", result.Processed,
			"expired", result.Expired,
			"failed", result.Failed,
			"expired_points", result.ExpiredPoints,
		)
	}
	return result, nil
}

// expireEntry 锁定顾客后重新读取流水再过期，重复执行不会重复扣减
func (s *LoyaltyService) expireEntry(entryID, customerID uint, now time.Time) (int64, error) {
	var expired int64
	var events []queue.DomainEventPayload
	err := s.loyaltyRepo.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.WithTx(tx).GetByIDForUpdate(customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		repo := s.loyaltyRepo.WithTx(tx)
		entry, err := repo.GetEntryByID(entryID)
		if err != nil {
			return err
		}
		if entry == nil || entry.ExpiresAt == nil || !entry.ExpiresAt.Before(now) {
			return nil
		}
		if entry.Type != constants.LoyaltyEntryTypeEarned && entry.Type != constants.LoyaltyEntryTypeBonus {
			return nil
		}
		if entry.IsUsed == constants.LoyaltyEntryUsedYes {
			return nil
		}
		remaining := entry.Remaining()
		if remaining <= 0 {
			return nil
		}

		// 过期后整条流水视为用尽，保持 is_used 与 points_used 一致
		entry.Type = constants.LoyaltyEntryTypeExpired
		entry.PointsUsed = entry.Points
		entry.IsUsed = constants.LoyaltyEntryUsedYes
		entry.UpdatedAt = now
		if err := repo.UpdateEntry(entry); err != nil {
			return ErrLoyaltyUpdateFailed
		}

		customer.TotalPoints -= remaining
		if customer.TotalPoints < 0 {
			logger.Warnw("loyalty_total_points_negative_clamped",
				"customer_id", customer.ID,
				"entry_id", entry.ID,
				"total_points", customer.TotalPoints,
			)
			customer.TotalPoints = 0
		}
		customer.UpdatedAt = now
		if err := s.customerRepo.WithTx(tx).Update(customer); err != nil {
			return ErrLoyaltyUpdateFailed
		}
		expired = remaining
		events = append(events, newPointsExpiredEvent(customer.ID, remaining, now))
		return nil
	})
	if err != nil {
		return 0, err
	}
	publishEvents(s.events, events)
	return expired, nil
}

// NotifyExpiringSoon 汇总 days 天内即将过期的积分，按顾客发送提醒事件
func (s *LoyaltyService) NotifyExpiringSoon(now time.Time, days int) (*ExpiringSoonResult, error) {
	if now.IsZero() {
		now = time.Now()
	}
	if days <= 0 {
		days = constants.DefaultExpiringSoonDays
	}
	entries, err := s.loyaltyRepo.ListExpiringBetween(now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	type expiringGroup struct {
		points   int64
		earliest time.Time
	}
	order := make([]uint, 0)
	groups := make(map[uint]*expiringGroup)
	for i := range entries {
		entry := &entries[i]
		remaining := entry.Remaining()
		if remaining <= 0 || entry.ExpiresAt == nil {
			continue
		}
		group, ok := groups[entry.CustomerID]
		if !ok {
			group = &expiringGroup{earliest: *entry.ExpiresAt}
			groups[entry.CustomerID] = group
			order = append(order, entry.CustomerID)
		}
		group.points += remaining
		if entry.ExpiresAt.Before(group.earliest) {
			group.earliest = *entry.ExpiresAt
		}
	}

	result := &ExpiringSoonResult{}
	events := make([]queue.DomainEventPayload, 0, len(order))
	for _, customerID := range order {
		group := groups[customerID]
		daysRemaining := int(math.Ceil(group.earliest.Sub(now).Hours() / 24))
		if daysRemaining < 0 {
			daysRemaining = 0
		}
		events = append(events, newPointsExpiringSoonEvent(customerID, group.points, daysRemaining, now))
		result.Customers++
		result.Points += group.points
	}
	publishEvents(s.events, events)
	return result, nil
}
