package repository

import (
	"errors"

	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository 顾客数据访问接口
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByIDForUpdate(id uint) (*models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建顾客仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID 按ID获取顾客
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByIDForUpdate 按ID加锁获取顾客
func (r *GormCustomerRepository) GetByIDForUpdate(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建顾客
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update 更新顾客
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}
