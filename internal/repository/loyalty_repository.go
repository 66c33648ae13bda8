package repository

import (
	"errors"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
)

// allocationOrder 兑换分配顺序：先到期优先，永不过期排最后，再按创建时间
const allocationOrder = "CASE WHEN expires_at IS NULL THEN 1 ELSE 0 END ASC, expires_at ASC, created_at ASC, id ASC"

// LoyaltyRepository 积分流水数据访问接口
type LoyaltyRepository interface {
	CreateEntry(entry *models.LoyaltyPointEntry) error
	UpdateEntry(entry *models.LoyaltyPointEntry) error
	GetEntryByID(id uint) (*models.LoyaltyPointEntry, error)
	ListAvailableEntries(customerID uint, entryType string, now time.Time) ([]models.LoyaltyPointEntry, error)
	ListExpiredCandidates(now time.Time, limit int) ([]models.LoyaltyPointEntry, error)
	ListExpiringBetween(from, to time.Time) ([]models.LoyaltyPointEntry, error)
	ListEntries(filter LoyaltyEntryListFilter) ([]models.LoyaltyPointEntry, int64, error)
	CreateLevelHistory(history *models.LoyaltyLevelHistory) error
	ListLevelHistory(customerID uint) ([]models.LoyaltyLevelHistory, error)
	WithTx(tx *gorm.DB) *GormLoyaltyRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormLoyaltyRepository GORM 实现
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewLoyaltyRepository 创建积分仓库
func NewLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLoyaltyRepository) WithTx(tx *gorm.DB) *GormLoyaltyRepository {
	if tx == nil {
		return r
	}
	return &GormLoyaltyRepository{db: tx}
}

// Transaction 开启事务
func (r *GormLoyaltyRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateEntry 创建积分流水
func (r *GormLoyaltyRepository) CreateEntry(entry *models.LoyaltyPointEntry) error {
	return r.db.Create(entry).Error
}

// UpdateEntry 更新积分流水
func (r *GormLoyaltyRepository) UpdateEntry(entry *models.LoyaltyPointEntry) error {
	return r.db.Save(entry).Error
}

// GetEntryByID 按ID获取积分流水
func (r *GormLoyaltyRepository) GetEntryByID(id uint) (*models.LoyaltyPointEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.LoyaltyPointEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListAvailableEntries 按兑换顺序获取未用尽且未过期的流水
func (r *GormLoyaltyRepository) ListAvailableEntries(customerID uint, entryType string, now time.Time) ([]models.LoyaltyPointEntry, error) {
	var entries []models.LoyaltyPointEntry
	query := r.db.Model(&models.LoyaltyPointEntry{}).
		Where("customer_id = ?", customerID).
		Where("is_used IN ?", []string{constants.LoyaltyEntryUsedNo, constants.LoyaltyEntryUsedPartial}).
		Where("(expires_at IS NULL OR expires_at > ?)", now)
	if entryType != "" {
		query = query.Where("type = ?", entryType)
	} else {
		query = query.Where("type IN ?", []string{constants.LoyaltyEntryTypeEarned, constants.LoyaltyEntryTypeBonus})
	}
	if err := query.Order(allocationOrder).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListExpiredCandidates 获取已到期但仍有剩余的流水
func (r *GormLoyaltyRepository) ListExpiredCandidates(now time.Time, limit int) ([]models.LoyaltyPointEntry, error) {
	var entries []models.LoyaltyPointEntry
	query := r.db.Model(&models.LoyaltyPointEntry{}).
		Where("type IN ?", []string{constants.LoyaltyEntryTypeEarned, constants.LoyaltyEntryTypeBonus}).
		Where("is_used IN ?", []string{constants.LoyaltyEntryUsedNo, constants.LoyaltyEntryUsedPartial}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListExpiringBetween 获取在 (from, to] 内到期且仍有剩余的流水
func (r *GormLoyaltyRepository) ListExpiringBetween(from, to time.Time) ([]models.LoyaltyPointEntry, error) {
	var entries []models.LoyaltyPointEntry
	if err := r.db.Model(&models.LoyaltyPointEntry{}).
		Where("type IN ?", []string{constants.LoyaltyEntryTypeEarned, constants.LoyaltyEntryTypeBonus}).
		Where("is_used IN ?", []string{constants.LoyaltyEntryUsedNo, constants.LoyaltyEntryUsedPartial}).
		Where("expires_at > ? AND expires_at <= ?", from, to).
		Order("customer_id ASC, expires_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListEntries 分页查询积分流水
func (r *GormLoyaltyRepository) ListEntries(filter LoyaltyEntryListFilter) ([]models.LoyaltyPointEntry, int64, error) {
	query := r.db.Model(&models.LoyaltyPointEntry{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.IsUsed != "" {
		query = query.Where("is_used = ?", filter.IsUsed)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var entries []models.LoyaltyPointEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CreateLevelHistory 写入等级变更记录
func (r *GormLoyaltyRepository) CreateLevelHistory(history *models.LoyaltyLevelHistory) error {
	return r.db.Create(history).Error
}

// ListLevelHistory 获取顾客等级变更记录
func (r *GormLoyaltyRepository) ListLevelHistory(customerID uint) ([]models.LoyaltyLevelHistory, error) {
	var histories []models.LoyaltyLevelHistory
	if err := r.db.Where("customer_id = ?", customerID).Order("id asc").Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}
