package repository

import (
	"errors"

	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
)

// LoyaltyConfigRepository 积分规则数据访问接口
type LoyaltyConfigRepository interface {
	GetActive() (*models.LoyaltyConfig, error)
	Create(cfg *models.LoyaltyConfig) error
	Update(cfg *models.LoyaltyConfig) error
}

// GormLoyaltyConfigRepository GORM 实现
type GormLoyaltyConfigRepository struct {
	db *gorm.DB
}

// NewLoyaltyConfigRepository 创建积分规则仓库
func NewLoyaltyConfigRepository(db *gorm.DB) *GormLoyaltyConfigRepository {
	return &GormLoyaltyConfigRepository{db: db}
}

// GetActive 获取生效的积分规则
func (r *GormLoyaltyConfigRepository) GetActive() (*models.LoyaltyConfig, error) {
	var cfg models.LoyaltyConfig
	if err := r.db.Where("is_active = ?", true).Order("id desc").First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Create 创建积分规则
func (r *GormLoyaltyConfigRepository) Create(cfg *models.LoyaltyConfig) error {
	return r.db.Create(cfg).Error
}

// Update 更新积分规则，并确保仅一条生效
func (r *GormLoyaltyConfigRepository) Update(cfg *models.LoyaltyConfig) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(cfg).Error; err != nil {
			return err
		}
		if !cfg.IsActive {
			return nil
		}
		return tx.Model(&models.LoyaltyConfig{}).
			Where("id <> ? AND is_active = ?", cfg.ID, true).
			Update("is_active", false).Error
	})
}
