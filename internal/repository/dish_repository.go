package repository

import (
	"errors"

	"github.com/mealpoint/loyalty/internal/models"

	"gorm.io/gorm"
)

// DishRepository 菜品只读访问接口
type DishRepository interface {
	GetByID(id uint) (*models.Dish, error)
}

// GormDishRepository GORM 实现
type GormDishRepository struct {
	db *gorm.DB
}

// NewDishRepository 创建菜品仓库
func NewDishRepository(db *gorm.DB) *GormDishRepository {
	return &GormDishRepository{db: db}
}

// GetByID 按ID获取菜品
func (r *GormDishRepository) GetByID(id uint) (*models.Dish, error) {
	if id == 0 {
		return nil, nil
	}
	var dish models.Dish
	if err := r.db.First(&dish, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dish, nil
}
