package service

import (
	"errors"
	"testing"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"

	"github.com/shopspring/decimal"
)

func TestLoyaltyConfigServiceCreatesDefaults(t *testing.T) {
	db := openServiceTestDB(t, "loyalty_config_default_test")
	svc := NewLoyaltyConfigService(repository.NewLoyaltyConfigRepository(db), config.LoyaltyConfig{})

	cfg, err := svc.GetActiveConfig()
	if err != nil {
		t.Fatalf("get active config failed: %v", err)
	}
	if cfg.ID == 0 || !cfg.IsActive {
		t.Fatalf("expected persisted active config: %+v", cfg)
	}
	if !cfg.PointsPerCurrencyUnit.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("unexpected rate: %s", cfg.PointsPerCurrencyUnit)
	}
	if cfg.PointsExpirationDays == nil || *cfg.PointsExpirationDays != 365 {
		t.Fatalf("unexpected expiration days: %v", cfg.PointsExpirationDays)
	}
	if cfg.StandardThreshold != 200 || cfg.PremiumThreshold != 700 || cfg.GoldThreshold != 1500 {
		t.Fatalf("unexpected thresholds: %+v", cfg)
	}

	again, err := svc.GetActiveConfig()
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if again.ID != cfg.ID {
		t.Fatalf("expected same config row, got %d vs %d", again.ID, cfg.ID)
	}
	var count int64
	db.Model(&models.LoyaltyConfig{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected single config row, got %d", count)
	}
}

func TestLoyaltyConfigServiceUsesConfiguredDefaults(t *testing.T) {
	db := openServiceTestDB(t, "loyalty_config_configured_test")
	svc := NewLoyaltyConfigService(repository.NewLoyaltyConfigRepository(db), config.LoyaltyConfig{
		PointsPerCurrencyUnit:   "0.05",
		PointsExpirationDays:    0,
		MinimumRedemptionPoints: 20,
		PointValueInCurrency:    "0.1",
		StandardThreshold:       100,
		PremiumThreshold:        500,
		GoldThreshold:           1000,
	})
	cfg, err := svc.GetActiveConfig()
	if err != nil {
		t.Fatalf("get active config failed: %v", err)
	}
	if cfg.PointsExpirationDays != nil {
		t.Fatalf("expected never-expiring points, got %v", *cfg.PointsExpirationDays)
	}
	if cfg.MinimumRedemptionPoints != 20 || cfg.GoldThreshold != 1000 {
		t.Fatalf("configured defaults not applied: %+v", cfg)
	}
}

func TestLoyaltyConfigServiceUpdate(t *testing.T) {
	db := openServiceTestDB(t, "loyalty_config_update_test")
	svc := NewLoyaltyConfigService(repository.NewLoyaltyConfigRepository(db), config.LoyaltyConfig{})
	days := 30
	updated, err := svc.UpdateConfig(UpdateLoyaltyConfigInput{
		PointsPerCurrencyUnit:   decimal.RequireFromString("0.02"),
		PointsExpirationDays:    &days,
		MinimumRedemptionPoints: 50,
		PointValueInCurrency:    models.NewMoneyFromDecimal(decimal.RequireFromString("0.5")),
		StandardThreshold:       100,
		PremiumThreshold:        400,
		GoldThreshold:           900,
	})
	if err != nil {
		t.Fatalf("update config failed: %v", err)
	}
	if updated.PremiumThreshold != 400 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	active, err := svc.GetActiveConfig()
	if err != nil {
		t.Fatalf("get active failed: %v", err)
	}
	if !active.PointsPerCurrencyUnit.Equal(decimal.RequireFromString("0.02")) || *active.PointsExpirationDays != 30 {
		t.Fatalf("update not persisted: %+v", active)
	}

	_, err = svc.UpdateConfig(UpdateLoyaltyConfigInput{
		PointsPerCurrencyUnit: decimal.RequireFromString("0.02"),
		StandardThreshold:     500,
		PremiumThreshold:      400,
		GoldThreshold:         900,
	})
	if !errors.Is(err, ErrLoyaltyConfigInvalid) {
		t.Fatalf("expected invalid thresholds, got %v", err)
	}
	_, err = svc.UpdateConfig(UpdateLoyaltyConfigInput{
		PointsPerCurrencyUnit: decimal.Zero,
		StandardThreshold:     100,
		PremiumThreshold:      400,
		GoldThreshold:         900,
	})
	if !errors.Is(err, ErrLoyaltyConfigInvalid) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
}

func TestPointsForAmountFloors(t *testing.T) {
	cfg := builtinLoyaltyConfig()
	cfg.PointsPerCurrencyUnit = decimal.RequireFromString("0.002")

	cases := []struct {
		amount string
		want   int64
	}{
		{"50000", 100},
		{"49999.99", 99},
		{"499", 0},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := PointsForAmount(cfg, decimal.RequireFromString(tc.amount))
		if err != nil {
			t.Fatalf("points for %s failed: %v", tc.amount, err)
		}
		if got != tc.want {
			t.Fatalf("points for %s: want %d got %d", tc.amount, tc.want, got)
		}
	}
	if _, err := PointsForAmount(cfg, decimal.NewFromInt(-1)); !errors.Is(err, ErrLoyaltyInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	amount, err := AmountForPoints(cfg, 250)
	if err != nil {
		t.Fatalf("amount for points failed: %v", err)
	}
	if amount.StringFixed(2) != "250.00" {
		t.Fatalf("unexpected amount: %s", amount.StringFixed(2))
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[error]string{
		ErrCustomerNotFound:          ErrorKindNotFound,
		ErrLoyaltyInvalidPoints:      ErrorKindValidation,
		ErrLoyaltyInsufficientPoints: ErrorKindConflict,
		ErrPromotionPerUserLimit:     ErrorKindConflict,
		errors.New("boom"):           ErrorKindInternal,
	}
	for err, want := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("%v: want %s got %s", err, want, got)
		}
	}
	if ErrorKind(nil) != "" {
		t.Fatalf("nil error should have no kind")
	}
}
