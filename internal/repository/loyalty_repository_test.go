package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLoyaltyRepositoryTest(t *testing.T) (*GormLoyaltyRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewLoyaltyRepository(db), db
}

func TestLoyaltyRepositoryListAvailableEntriesOrder(t *testing.T) {
	repo, _ := setupLoyaltyRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	soon := now.Add(24 * time.Hour)
	later := now.Add(72 * time.Hour)
	past := now.Add(-time.Hour)

	entries := []models.LoyaltyPointEntry{
		{CustomerID: 1, Points: 10, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo, CreatedAt: now.Add(-3 * time.Hour)},
		{CustomerID: 1, Points: 20, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo, ExpiresAt: &later, CreatedAt: now.Add(-2 * time.Hour)},
		{CustomerID: 1, Points: 30, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedPartial, PointsUsed: 5, ExpiresAt: &soon, CreatedAt: now.Add(-time.Hour)},
		{CustomerID: 1, Points: 40, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo, ExpiresAt: &past, CreatedAt: now.Add(-4 * time.Hour)},
		{CustomerID: 1, Points: 50, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedYes, PointsUsed: 50, CreatedAt: now},
		{CustomerID: 1, Points: 60, Type: constants.LoyaltyEntryTypeBonus, IsUsed: constants.LoyaltyEntryUsedNo, CreatedAt: now},
		{CustomerID: 2, Points: 70, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo, CreatedAt: now},
	}
	for i := range entries {
		if err := repo.CreateEntry(&entries[i]); err != nil {
			t.Fatalf("create entry %d failed: %v", i, err)
		}
	}

	got, err := repo.ListAvailableEntries(1, constants.LoyaltyEntryTypeEarned, now)
	if err != nil {
		t.Fatalf("list available failed: %v", err)
	}
	want := []int64{30, 20, 10}
	if len(got) != len(want) {
		t.Fatalf("available entries want %d got %d", len(want), len(got))
	}
	for i, entry := range got {
		if entry.Points != want[i] {
			t.Fatalf("entry %d want points %d got %d", i, want[i], entry.Points)
		}
	}

	all, err := repo.ListAvailableEntries(1, "", now)
	if err != nil {
		t.Fatalf("list all available failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all available want 4 got %d", len(all))
	}

	expired, err := repo.ListExpiredCandidates(now, 0)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(expired) != 1 || expired[0].Points != 40 {
		t.Fatalf("expired candidates want the past entry, got %+v", expired)
	}
}

func TestLoyaltyRepositoryListEntriesFilter(t *testing.T) {
	repo, _ := setupLoyaltyRepositoryTest(t)
	orderID := uint(88)
	entries := []models.LoyaltyPointEntry{
		{CustomerID: 1, Points: 10, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo, OrderID: &orderID},
		{CustomerID: 1, Points: 20, Type: constants.LoyaltyEntryTypeBonus, IsUsed: constants.LoyaltyEntryUsedNo},
		{CustomerID: 1, Points: -5, Type: constants.LoyaltyEntryTypeRedeemed, IsUsed: constants.LoyaltyEntryUsedYes},
		{CustomerID: 3, Points: 10, Type: constants.LoyaltyEntryTypeEarned, IsUsed: constants.LoyaltyEntryUsedNo},
	}
	for i := range entries {
		if err := repo.CreateEntry(&entries[i]); err != nil {
			t.Fatalf("create entry %d failed: %v", i, err)
		}
	}

	rows, total, err := repo.ListEntries(LoyaltyEntryListFilter{Page: 1, PageSize: 2, CustomerID: 1})
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("paged entries want total=3 len=2 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = repo.ListEntries(LoyaltyEntryListFilter{CustomerID: 1, OrderID: orderID})
	if err != nil {
		t.Fatalf("list by order failed: %v", err)
	}
	if total != 1 || rows[0].Points != 10 {
		t.Fatalf("order filter want one entry got total=%d", total)
	}

	_, total, err = repo.ListEntries(LoyaltyEntryListFilter{CustomerID: 1, Type: constants.LoyaltyEntryTypeRedeemed})
	if err != nil {
		t.Fatalf("list by type failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("type filter want 1 got %d", total)
	}
}
