package models

import "time"

// Dish 菜品（只读子集，用于活动覆盖判断）
type Dish struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                // 主键
	CategoryID uint      `gorm:"index;not null;default:0" json:"category_id"`         // 分类ID
	Name       string    `gorm:"not null" json:"name"`                                // 名称
	Price      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`  // 单价
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`              // 是否上架
	CreatedAt  time.Time `json:"created_at"`                                          // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                          // 更新时间
}

// TableName 指定表名
func (Dish) TableName() string {
	return "dishes"
}
