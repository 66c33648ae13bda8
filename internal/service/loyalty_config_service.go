package service

import (
	"context"
	"time"

	"github.com/mealpoint/loyalty/internal/cache"
	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	defaultPointsPerCurrencyUnit = decimal.RequireFromString("0.01")
	defaultPointValueInCurrency  = decimal.NewFromInt(1)
)

// LoyaltyConfigService 积分规则服务
type LoyaltyConfigService struct {
	repo     repository.LoyaltyConfigRepository
	defaults config.LoyaltyConfig
	cacheTTL time.Duration
}

// UpdateLoyaltyConfigInput 更新积分规则输入（整体替换）
type UpdateLoyaltyConfigInput struct {
	PointsPerCurrencyUnit   decimal.Decimal
	PointsExpirationDays    *int // 为空表示永不过期
	MinimumRedemptionPoints int64
	PointValueInCurrency    models.Money
	StandardThreshold       int64
	PremiumThreshold        int64
	GoldThreshold           int64
}

// NewLoyaltyConfigService 创建积分规则服务
func NewLoyaltyConfigService(repo repository.LoyaltyConfigRepository, defaults config.LoyaltyConfig) *LoyaltyConfigService {
	ttl := time.Duration(defaults.ConfigCacheTTLSeconds) * time.Second
	return &LoyaltyConfigService{
		repo:     repo,
		defaults: defaults,
		cacheTTL: ttl,
	}
}

// GetActiveConfig 获取生效积分规则，不存在时按默认值创建
func (s *LoyaltyConfigService) GetActiveConfig() (*models.LoyaltyConfig, error) {
	ctx := context.Background()
	if cached, hit, err := cache.GetLoyaltyConfig(ctx); err != nil {
		logger.Warnw("loyalty_config_cache_get_failed", "error", err)
	} else if hit {
		return cached, nil
	}

	cfg, err := s.repo.GetActive()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = s.buildDefaultConfig()
		if err := validateLoyaltyConfig(cfg); err != nil {
			logger.Warnw("loyalty_config_defaults_invalid", "error", err)
			cfg = builtinLoyaltyConfig()
		}
		if err := s.repo.Create(cfg); err != nil {
			return nil, err
		}
		logger.Infow("loyalty_config_default_created", "config_id", cfg.ID)
	}

	if err := cache.SetLoyaltyConfig(ctx, cfg, s.cacheTTL); err != nil {
		logger.Warnw("loyalty_config_cache_set_failed", "error", err)
	}
	return cfg, nil
}

// UpdateConfig 更新生效积分规则
func (s *LoyaltyConfigService) UpdateConfig(input UpdateLoyaltyConfigInput) (*models.LoyaltyConfig, error) {
	current, err := s.GetActiveConfig()
	if err != nil {
		return nil, err
	}
	next := *current
	next.PointsPerCurrencyUnit = input.PointsPerCurrencyUnit
	next.PointsExpirationDays = input.PointsExpirationDays
	next.MinimumRedemptionPoints = input.MinimumRedemptionPoints
	next.PointValueInCurrency = input.PointValueInCurrency
	next.StandardThreshold = input.StandardThreshold
	next.PremiumThreshold = input.PremiumThreshold
	next.GoldThreshold = input.GoldThreshold
	next.IsActive = true
	next.UpdatedAt = time.Now()
	if err := validateLoyaltyConfig(&next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(&next); err != nil {
		return nil, ErrLoyaltyUpdateFailed
	}
	if err := cache.DelLoyaltyConfig(context.Background()); err != nil {
		logger.Warnw("loyalty_config_cache_del_failed", "error", err)
	}
	return &next, nil
}

// CalculatePointsForOrder 按金额计算可获得积分（向下取整）
func (s *LoyaltyConfigService) CalculatePointsForOrder(amount decimal.Decimal) (int64, error) {
	cfg, err := s.GetActiveConfig()
	if err != nil {
		return 0, err
	}
	return PointsForAmount(cfg, amount)
}

// CalculateAmountForPoints 计算积分可抵扣金额
func (s *LoyaltyConfigService) CalculateAmountForPoints(points int64) (models.Money, error) {
	cfg, err := s.GetActiveConfig()
	if err != nil {
		return models.Money{}, err
	}
	return AmountForPoints(cfg, points)
}

// PointsForAmount 按规则计算金额对应积分
func PointsForAmount(cfg *models.LoyaltyConfig, amount decimal.Decimal) (int64, error) {
	if cfg == nil {
		return 0, ErrLoyaltyConfigNotFound
	}
	if amount.IsNegative() {
		return 0, ErrLoyaltyInvalidAmount
	}
	return amount.Mul(cfg.PointsPerCurrencyUnit).Floor().IntPart(), nil
}

// AmountForPoints 按规则计算积分对应金额
func AmountForPoints(cfg *models.LoyaltyConfig, points int64) (models.Money, error) {
	if cfg == nil {
		return models.Money{}, ErrLoyaltyConfigNotFound
	}
	if points < 0 {
		return models.Money{}, ErrLoyaltyInvalidPoints
	}
	return cfg.PointValueInCurrency.MulPoints(points), nil
}

func (s *LoyaltyConfigService) buildDefaultConfig() *models.LoyaltyConfig {
	cfg := builtinLoyaltyConfig()
	d := s.defaults
	if value, err := decimal.NewFromString(d.PointsPerCurrencyUnit); err == nil {
		cfg.PointsPerCurrencyUnit = value
	}
	if value, err := decimal.NewFromString(d.PointValueInCurrency); err == nil {
		cfg.PointValueInCurrency = models.NewMoneyFromDecimal(value)
	}
	if d.PointsExpirationDays > 0 {
		days := d.PointsExpirationDays
		cfg.PointsExpirationDays = &days
	} else if d.PointsPerCurrencyUnit != "" {
		// 显式配置了规则但未设置有效天数，视为永不过期
		cfg.PointsExpirationDays = nil
	}
	if d.MinimumRedemptionPoints > 0 {
		cfg.MinimumRedemptionPoints = d.MinimumRedemptionPoints
	}
	if d.StandardThreshold > 0 || d.PremiumThreshold > 0 || d.GoldThreshold > 0 {
		cfg.StandardThreshold = d.StandardThreshold
		cfg.PremiumThreshold = d.PremiumThreshold
		cfg.GoldThreshold = d.GoldThreshold
	}
	return cfg
}

func builtinLoyaltyConfig() *models.LoyaltyConfig {
	days := 365
	return &models.LoyaltyConfig{
		PointsPerCurrencyUnit:   defaultPointsPerCurrencyUnit,
		PointsExpirationDays:    &days,
		MinimumRedemptionPoints: 100,
		PointValueInCurrency:    models.NewMoneyFromDecimal(defaultPointValueInCurrency),
		StandardThreshold:       200,
		PremiumThreshold:        700,
		GoldThreshold:           1500,
		IsActive:                true,
	}
}

// validateLoyaltyConfig 校验规则，等级门槛必须严格递增
func validateLoyaltyConfig(cfg *models.LoyaltyConfig) error {
	if cfg == nil {
		return ErrLoyaltyConfigInvalid
	}
	if !cfg.PointsPerCurrencyUnit.IsPositive() {
		return ErrLoyaltyConfigInvalid
	}
	if cfg.PointsExpirationDays != nil && *cfg.PointsExpirationDays <= 0 {
		return ErrLoyaltyConfigInvalid
	}
	if cfg.MinimumRedemptionPoints < 0 {
		return ErrLoyaltyConfigInvalid
	}
	if cfg.PointValueInCurrency.Decimal.IsNegative() {
		return ErrLoyaltyConfigInvalid
	}
	if cfg.StandardThreshold < 0 {
		return ErrLoyaltyConfigInvalid
	}
	if cfg.StandardThreshold >= cfg.PremiumThreshold || cfg.PremiumThreshold >= cfg.GoldThreshold {
		return ErrLoyaltyConfigInvalid
	}
	return nil
}
