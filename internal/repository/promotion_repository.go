package repository

import (
	"errors"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromotionRepository 促销活动数据访问接口
type PromotionRepository interface {
	GetByID(id uint) (*models.Promotion, error)
	GetByIDForUpdate(id uint) (*models.Promotion, error)
	Create(promotion *models.Promotion) error
	Update(promotion *models.Promotion) error
	UpdateStatus(id uint, fromStatus, toStatus string) (bool, error)
	IncrementUsage(id uint) (bool, error)
	List(filter PromotionListFilter) ([]models.Promotion, int64, error)
	ListByStatuses(statuses []string) ([]models.Promotion, error)
	ListActive(now time.Time) ([]models.Promotion, error)
	WithTx(tx *gorm.DB) *GormPromotionRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建活动仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) *GormPromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// Transaction 开启事务
func (r *GormPromotionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func preloadPromotionRelations(query *gorm.DB) *gorm.DB {
	return query.Preload("TargetDishes").Preload("TargetCategories").Preload("OfferedDishes")
}

// GetByID 根据ID获取活动
func (r *GormPromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	if id == 0 {
		return nil, nil
	}
	var promotion models.Promotion
	if err := preloadPromotionRelations(r.db).First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// GetByIDForUpdate 根据ID加锁获取活动
func (r *GormPromotionRepository) GetByIDForUpdate(id uint) (*models.Promotion, error) {
	if id == 0 {
		return nil, nil
	}
	var promotion models.Promotion
	if err := preloadPromotionRelations(r.db.Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("id = ?", id).
		First(&promotion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// Create 创建活动（连同指定菜品/分类/赠品）
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	return r.db.Create(promotion).Error
}

// Update 更新活动（不覆盖使用次数），并整体替换指定菜品/分类/赠品
func (r *GormPromotionRepository) Update(promotion *models.Promotion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations, "current_usage").Save(promotion).Error; err != nil {
			return err
		}
		if err := tx.Where("promotion_id = ?", promotion.ID).Delete(&models.PromotionDish{}).Error; err != nil {
			return err
		}
		if err := tx.Where("promotion_id = ?", promotion.ID).Delete(&models.PromotionCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("promotion_id = ?", promotion.ID).Delete(&models.PromotionOfferedDish{}).Error; err != nil {
			return err
		}
		for i := range promotion.TargetDishes {
			promotion.TargetDishes[i].ID = 0
			promotion.TargetDishes[i].PromotionID = promotion.ID
		}
		for i := range promotion.TargetCategories {
			promotion.TargetCategories[i].ID = 0
			promotion.TargetCategories[i].PromotionID = promotion.ID
		}
		for i := range promotion.OfferedDishes {
			promotion.OfferedDishes[i].ID = 0
			promotion.OfferedDishes[i].PromotionID = promotion.ID
		}
		if len(promotion.TargetDishes) > 0 {
			if err := tx.Create(&promotion.TargetDishes).Error; err != nil {
				return err
			}
		}
		if len(promotion.TargetCategories) > 0 {
			if err := tx.Create(&promotion.TargetCategories).Error; err != nil {
				return err
			}
		}
		if len(promotion.OfferedDishes) > 0 {
			if err := tx.Create(&promotion.OfferedDishes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus 条件更新状态，仅当当前状态为 fromStatus 时生效
func (r *GormPromotionRepository) UpdateStatus(id uint, fromStatus, toStatus string) (bool, error) {
	result := r.db.Model(&models.Promotion{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementUsage 在未超过总次数上限时累加使用次数
func (r *GormPromotionRepository) IncrementUsage(id uint) (bool, error) {
	result := r.db.Model(&models.Promotion{}).
		Where("id = ?", id).
		Where("(max_total_usage IS NULL OR current_usage < max_total_usage)").
		Updates(map[string]interface{}{
			"current_usage": gorm.Expr("current_usage + ?", 1),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 获取活动列表
func (r *GormPromotionRepository) List(filter PromotionListFilter) ([]models.Promotion, int64, error) {
	query := r.db.Model(&models.Promotion{})

	if filter.ID != 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if filter.Keyword != "" {
		query = query.Scopes(keywordMatch(filter.Keyword, "name", "description"))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Visibility != "" {
		query = query.Where("visibility = ?", filter.Visibility)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}
	if filter.DishID != 0 {
		query = query.Where("id IN (?)", r.db.Model(&models.PromotionDish{}).Select("promotion_id").Where("dish_id = ?", filter.DishID))
	}
	if filter.CategoryID != 0 {
		query = query.Where("id IN (?)", r.db.Model(&models.PromotionCategory{}).Select("promotion_id").Where("category_id = ?", filter.CategoryID))
	}
	if filter.DateFrom != nil {
		query = query.Where("expiration_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("start_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var promotions []models.Promotion
	if err := preloadPromotionRelations(query).Order("id desc").Find(&promotions).Error; err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

// ListByStatuses 按状态获取活动
func (r *GormPromotionRepository) ListByStatuses(statuses []string) ([]models.Promotion, error) {
	if len(statuses) == 0 {
		return []models.Promotion{}, nil
	}
	var promotions []models.Promotion
	if err := r.db.Where("status IN ?", statuses).Order("id asc").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

// ListActive 获取当前生效的活动
func (r *GormPromotionRepository) ListActive(now time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	query := r.db.Where("status = ?", constants.PromotionStatusActive).
		Where("start_date <= ? AND expiration_date >= ?", now, now)
	if err := preloadPromotionRelations(query).Order("id desc").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}
