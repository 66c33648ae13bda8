package cache

import (
	"context"
	"time"

	"github.com/mealpoint/loyalty/internal/models"
)

const (
	loyaltyConfigKey        = "loyalty:config:active"
	defaultLoyaltyConfigTTL = 5 * time.Minute
)

// GetLoyaltyConfig 获取生效积分规则快照
func GetLoyaltyConfig(ctx context.Context) (*models.LoyaltyConfig, bool, error) {
	var cfg models.LoyaltyConfig
	hit, err := GetJSON(ctx, loyaltyConfigKey, &cfg)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &cfg, true, nil
}

// SetLoyaltyConfig 写入生效积分规则快照
func SetLoyaltyConfig(ctx context.Context, cfg *models.LoyaltyConfig, ttl time.Duration) error {
	if cfg == nil || cfg.ID == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLoyaltyConfigTTL
	}
	return SetJSON(ctx, loyaltyConfigKey, cfg, ttl)
}

// DelLoyaltyConfig 删除生效积分规则快照
func DelLoyaltyConfig(ctx context.Context) error {
	return Del(ctx, loyaltyConfigKey)
}
