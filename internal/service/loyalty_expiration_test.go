package service

import (
	"testing"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"
)

func TestLoyaltyServiceExpirePoints(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 120, 150, constants.LoyaltyLevelNone)
	now := time.Now()
	stale := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 100, 30, timePtr(now.Add(-24*time.Hour)), now.AddDate(-1, 0, 0))
	fresh := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeBonus, 50, 0, timePtr(now.AddDate(0, 1, 0)), now)

	result, err := svc.ExpirePoints(now)
	if err != nil {
		t.Fatalf("expire points failed: %v", err)
	}
	if result.Processed != 1 || result.Expired != 1 || result.Failed != 0 || result.ExpiredPoints != 70 {
		t.Fatalf("unexpected result: %+v", result)
	}

	entry := reloadEntry(t, db, stale.ID)
	if entry.Type != constants.LoyaltyEntryTypeExpired || entry.IsUsed != constants.LoyaltyEntryUsedYes || entry.PointsUsed != entry.Points {
		t.Fatalf("unexpected expired entry: %+v", entry)
	}
	if reloadEntry(t, db, fresh.ID).Type != constants.LoyaltyEntryTypeBonus {
		t.Fatalf("fresh entry must not expire")
	}
	customer := reloadCustomer(t, db, 1)
	if customer.TotalPoints != 50 {
		t.Fatalf("expected total 50, got %d", customer.TotalPoints)
	}
	if customer.LifetimePoints != 150 {
		t.Fatalf("lifetime must not change, got %d", customer.LifetimePoints)
	}
	expiredEvents := sink.byName(constants.EventPointsExpired)
	if len(expiredEvents) != 1 || expiredEvents[0].ExpiredPoints != 70 {
		t.Fatalf("unexpected expired events: %+v", expiredEvents)
	}
}

func TestLoyaltyServiceExpirePointsIdempotent(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 40, 40, constants.LoyaltyLevelNone)
	now := time.Now()
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 40, 0, timePtr(now.Add(-time.Hour)), now.AddDate(-1, 0, 0))

	if _, err := svc.ExpirePoints(now); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	second, err := svc.ExpirePoints(now)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.Processed != 0 || second.ExpiredPoints != 0 {
		t.Fatalf("second sweep should be a no-op: %+v", second)
	}
	// 直接重放单条过期也不会重复扣减
	var entry models.LoyaltyPointEntry
	db.Where("customer_id = ?", 1).First(&entry)
	expired, err := svc.expireEntry(entry.ID, 1, now)
	if err != nil {
		t.Fatalf("replay expire failed: %v", err)
	}
	if expired != 0 {
		t.Fatalf("replay should expire nothing, got %d", expired)
	}
	if reloadCustomer(t, db, 1).TotalPoints != 0 {
		t.Fatalf("expected total 0")
	}
	if len(sink.byName(constants.EventPointsExpired)) != 1 {
		t.Fatalf("expected a single expired event")
	}
}

func TestLoyaltyServiceExpirePointsClampsTotal(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 10, 50, constants.LoyaltyLevelNone)
	now := time.Now()
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 50, 0, timePtr(now.Add(-time.Hour)), now.AddDate(-1, 0, 0))

	if _, err := svc.ExpirePoints(now); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if total := reloadCustomer(t, db, 1).TotalPoints; total != 0 {
		t.Fatalf("expected clamp to 0, got %d", total)
	}
}

func TestLoyaltyServiceExpirePointsSkipsConsumedAndRedeemed(t *testing.T) {
	svc, db, _ := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 0, 80, constants.LoyaltyLevelNone)
	now := time.Now()
	used := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 40, 40, timePtr(now.Add(-time.Hour)), now.AddDate(-1, 0, 0))
	redeemed := createTestEntry(t, db, 1, constants.LoyaltyEntryTypeRedeemed, 40, 40, timePtr(now.Add(-time.Hour)), now.AddDate(-1, 0, 0))

	result, err := svc.ExpirePoints(now)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("expected nothing to process, got %+v", result)
	}
	if reloadEntry(t, db, used.ID).Type != constants.LoyaltyEntryTypeEarned {
		t.Fatalf("fully consumed entry must keep its type")
	}
	if reloadEntry(t, db, redeemed.ID).Type != constants.LoyaltyEntryTypeRedeemed {
		t.Fatalf("redeemed entry must keep its type")
	}
}

func TestLoyaltyServiceNotifyExpiringSoon(t *testing.T) {
	svc, db, sink := setupLoyaltyServiceTest(t)
	seedLoyaltyConfig(t, db, nil)
	createTestCustomer(t, db, 1, 100, 100, constants.LoyaltyLevelNone)
	createTestCustomer(t, db, 2, 100, 100, constants.LoyaltyLevelNone)
	now := time.Now()
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeEarned, 60, 10, timePtr(now.Add(3*24*time.Hour-time.Hour)), now)
	createTestEntry(t, db, 1, constants.LoyaltyEntryTypeBonus, 40, 0, timePtr(now.Add(5*24*time.Hour)), now)
	createTestEntry(t, db, 2, constants.LoyaltyEntryTypeEarned, 100, 0, timePtr(now.AddDate(0, 1, 0)), now)

	result, err := svc.NotifyExpiringSoon(now, 7)
	if err != nil {
		t.Fatalf("notify expiring soon failed: %v", err)
	}
	if result.Customers != 1 || result.Points != 90 {
		t.Fatalf("unexpected result: %+v", result)
	}
	events := sink.byName(constants.EventPointsExpiringSoon)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].CustomerID != 1 || events[0].ExpiringPoints != 90 || events[0].DaysRemaining != 3 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}
