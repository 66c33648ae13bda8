package repository

import (
	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
)

// PromotionUsageRepository 活动使用记录数据访问接口
type PromotionUsageRepository interface {
	Create(usage *models.PromotionUsage) error
	CountByCustomer(promotionID, customerID uint) (int64, error)
	ListByOrderID(orderID uint) ([]models.PromotionUsage, error)
	List(filter PromotionUsageListFilter) ([]models.PromotionUsage, int64, error)
	WithTx(tx *gorm.DB) *GormPromotionUsageRepository
}

// GormPromotionUsageRepository GORM 实现
type GormPromotionUsageRepository struct {
	db *gorm.DB
}

// NewPromotionUsageRepository 创建活动使用记录仓库
func NewPromotionUsageRepository(db *gorm.DB) *GormPromotionUsageRepository {
	return &GormPromotionUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionUsageRepository) WithTx(tx *gorm.DB) *GormPromotionUsageRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionUsageRepository{db: tx}
}

// Create 创建使用记录
func (r *GormPromotionUsageRepository) Create(usage *models.PromotionUsage) error {
	return r.db.Create(usage).Error
}

// CountByCustomer 获取顾客使用次数
func (r *GormPromotionUsageRepository) CountByCustomer(promotionID, customerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND customer_id = ?", promotionID, customerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByOrderID 获取订单使用记录
func (r *GormPromotionUsageRepository) ListByOrderID(orderID uint) ([]models.PromotionUsage, error) {
	var usages []models.PromotionUsage
	if err := r.db.Where("order_id = ?", orderID).Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// List 分页查询使用记录
func (r *GormPromotionUsageRepository) List(filter PromotionUsageListFilter) ([]models.PromotionUsage, int64, error) {
	query := r.db.Model(&models.PromotionUsage{})
	if filter.PromotionID != 0 {
		query = query.Where("promotion_id = ?", filter.PromotionID)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var usages []models.PromotionUsage
	if err := query.Order("id desc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}
