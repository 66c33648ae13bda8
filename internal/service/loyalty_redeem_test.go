package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"
)

func TestLoyaltyServiceRedeemBonusFirst(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 0
	})
	createTestCustomer(t, db, 1, 80, 80, constants.LoyaltyLevelNone)
	now := time.Now()
	expires := now.AddDate(0, 6, 0)
	// 获得积分更早创建，仍应先消耗赠送积分
	earned := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 0, timePtr(expires), now.Add(-2*time.Hour))
	bonus := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeBonus, 30, 0, timePtr(expires), now.Add(-time.Hour))

	orderID := uint(12)
	result, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 40, OrderID: &orderID})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.TotalPointsUsed != 40 {
		t.Fatalf("expected 40 used, got %d", result.TotalPointsUsed)
	}
	if len(result.UsedPointsDetails) != 2 {
		t.Fatalf("expected 2 allocations, got %+v", result.UsedPointsDetails)
	}
	if result.UsedPointsDetails[0].EntryID != bonus.ID || result.UsedPointsDetails[0].PointsUsed != 30 {
		t.Fatalf("expected bonus consumed first, got %+v", result.UsedPointsDetails[0])
	}
	if result.UsedPointsDetails[1].EntryID != earned.ID || result.UsedPointsDetails[1].PointsUsed != 10 {
		t.Fatalf("expected 10 from earned, got %+v", result.UsedPointsDetails[1])
	}

	bonusAfter := reloadEntry(t, db, bonus.ID)
	if bonusAfter.PointsUsed != 30 || bonusAfter.IsUsed != constants.LoyaltyEntryUsedYes {
		t.Fatalf("unexpected bonus entry: %+v", bonusAfter)
	}
	earnedAfter := reloadEntry(t, db, earned.ID)
	if earnedAfter.PointsUsed != 10 || earnedAfter.IsUsed != constants.LoyaltyEntryUsedPartial {
		t.Fatalf("unexpected earned entry: %+v", earnedAfter)
	}

	customer := reloadCustomer(t, db, 1)
	if customer.TotalPoints != 40 {
		t.Fatalf("expected total 40, got %d", customer.TotalPoints)
	}
	if customer.LifetimePoints != 80 {
		t.Fatalf("lifetime must not decrease, got %d", customer.LifetimePoints)
	}
	if result.Redemption.Type != constants.LoyaltyEntryTypeRedeemed || result.Redemption.Points != 40 {
		t.Fatalf("unexpected redemption entry: %+v", result.Redemption)
	}
	if result.Redemption.Reason != constants.LoyaltyReasonRedeemed {
		t.Fatalf("unexpected redemption reason: %s", result.Redemption.Reason)
	}
	redeemed := sink.byName(constants.EventPointsRedeemed)
	if len(redeemed) != 1 || redeemed[0].Points != 40 || redeemed[0].OrderReference != "order:12" {
		t.Fatalf("unexpected redeemed events: %+v", redeemed)
	}
}

func TestLoyaltyServiceRedeemOldestExpiryFirst(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 0
	})
	createTestCustomer(t, db, 1, 150, 150, constants.LoyaltyLevelNone)
	now := time.Now()
	never := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 0, nil, now.Add(-3*time.Hour))
	late := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 0, timePtr(now.AddDate(0, 2, 0)), now.Add(-2*time.Hour))
	soon := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 0, timePtr(now.AddDate(0, 0, 3)), now.Add(-time.Hour))

	result, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 120})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	ids := []uint{}
	for _, detail := range result.UsedPointsDetails {
		ids = append(ids, detail.EntryID)
	}
	if len(ids) != 3 || ids[0] != soon.ID || ids[1] != late.ID || ids[2] != never.ID {
		t.Fatalf("unexpected allocation order: %v", ids)
	}
	if reloadEntry(t, db, never.ID).PointsUsed != 20 {
		t.Fatalf("expected 20 from never-expiring entry")
	}
}

func TestLoyaltyServiceRedeemInsufficientMutatesNothing(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 0
	})
	createTestCustomer(t, db, 1, 80, 80, constants.LoyaltyLevelNone)
	now := time.Now()
	entry := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 80, 0, timePtr(now.AddDate(1, 0, 0)), now)

	if _, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 81}); !errors.Is(err, ErrLoyaltyInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	customer := reloadCustomer(t, db, 1)
	if customer.TotalPoints != 80 {
		t.Fatalf("total changed: %d", customer.TotalPoints)
	}
	if reloadEntry(t, db, entry.ID).PointsUsed != 0 {
		t.Fatalf("entry mutated")
	}
	var count int64
	db.Model(&models.LoyaltyPointEntry{}).Where("type = ?", constants.LoyaltyEntryTypeRedeemed).Count(&count)
	if count != 0 {
		t.Fatalf("expected no redemption entries, got %d", count)
	}
	if len(sink.names()) != 0 {
		t.Fatalf("expected no events, got %v", sink.names())
	}
}

func TestLoyaltyServiceRedeemSkipsUnsweptExpiredEntries(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 0
	})
	// 余额缓存仍包含未清理的过期积分
	createTestCustomer(t, db, 1, 100, 100, constants.LoyaltyLevelNone)
	now := time.Now()
	expired := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 60, 0, timePtr(now.Add(-time.Hour)), now.AddDate(0, -1, 0))
	valid := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 40, 0, timePtr(now.AddDate(0, 1, 0)), now)

	if _, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 50}); !errors.Is(err, ErrLoyaltyInsufficientAvailable) {
		t.Fatalf("expected insufficient available, got %v", err)
	}
	// 整体回滚
	if reloadEntry(t, db, valid.ID).PointsUsed != 0 {
		t.Fatalf("valid entry should roll back")
	}
	if reloadEntry(t, db, expired.ID).PointsUsed != 0 {
		t.Fatalf("expired entry must not be consumed")
	}
	if reloadCustomer(t, db, 1).TotalPoints != 100 {
		t.Fatalf("total should roll back")
	}
}

func TestLoyaltyServiceRedeemValidation(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 100
	})
	createTestCustomer(t, db, 1, 500, 500, constants.LoyaltyLevelStandard)

	if _, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 0}); !errors.Is(err, ErrLoyaltyInvalidPoints) {
		t.Fatalf("expected invalid points, got %v", err)
	}
	if _, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 99}); !errors.Is(err, ErrLoyaltyBelowMinimumRedemption) {
		t.Fatalf("expected below minimum, got %v", err)
	}
	if _, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 404, Points: 100}); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected customer not found, got %v", err)
	}
}

func TestLoyaltyServiceGetAvailablePoints(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 90, 120, constants.LoyaltyLevelNone)
	now := time.Now()
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 20, timePtr(now.AddDate(0, 1, 0)), now)
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeBonus, 30, 0, nil, now)
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 40, 40, timePtr(now.AddDate(0, 1, 0)), now)
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 30, 0, timePtr(now.Add(-time.Minute)), now.AddDate(0, -1, 0))

	summary, err := svc.GetAvailablePoints(1)
	if err != nil {
		t.Fatalf("get available points failed: %v", err)
	}
	if summary.AvailablePoints != 60 || summary.BonusPoints != 30 || summary.EarnedPoints != 30 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Entries) != 2 || summary.Entries[0].Type != constants.LoyaltyEntryTypeBonus {
		t.Fatalf("expected bonus entry listed first: %+v", summary.Entries)
	}
}

func TestLoyaltyServiceConcurrentRedeem(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, func(cfg *models.LoyaltyConfig) {
		cfg.MinimumRedemptionPoints = 0
	})
	createTestCustomer(t, db, 1, 150, 150, constants.LoyaltyLevelNone)
	now := time.Now()
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 150, 0, timePtr(now.AddDate(0, 6, 0)), now.Add(-time.Hour))

	const attempts = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	rejected := 0
	var unexpected []error
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RedeemPoints(RedeemPointsInput{CustomerID: 1, Points: 100})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrLoyaltyInsufficientPoints), errors.Is(err, ErrLoyaltyInsufficientAvailable):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected errors: %v", unexpected)
	}
	if success != 1 || rejected != attempts-1 {
		t.Fatalf("expected 1 success and %d rejections, got %d/%d", attempts-1, success, rejected)
	}
	customer := reloadCustomer(t, db, 1)
	if customer.TotalPoints != 50 {
		t.Fatalf("expected total 50, got %d", customer.TotalPoints)
	}
	var redeemed int64
	db.Model(&models.LoyaltyPointEntry{}).Where("customer_id = ? AND type = ?", 1, constants.LoyaltyEntryTypeRedeemed).Count(&redeemed)
	if redeemed != 1 {
		t.Fatalf("expected 1 redemption entry, got %d", redeemed)
	}
	if events := sink.byName(constants.EventPointsRedeemed); len(events) != 1 {
		t.Fatalf("expected 1 redeemed event, got %d", len(events))
	}
}
