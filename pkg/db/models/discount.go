package models

import "time"

// DiscountGroup gates the availability of its discounts as a unit.
type DiscountGroup struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string `gorm:"column:name;not null"`
	SortOrder int    `gorm:"column:sort_order;not null;default:0"`
	Available bool   `gorm:"column:available;not null;default:true"`

	Discounts []Discount `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (DiscountGroup) TableName() string { return "discount_groups" }

// Discount is either a percentage of the subtotal or a flat currency amount.
type Discount struct {
	ID           uint    `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID      uint    `gorm:"column:group_id;not null;index"`
	Name         string  `gorm:"column:name;not null"`
	Amount       float64 `gorm:"column:amount;not null"`
	IsPercentage bool    `gorm:"column:is_percentage;not null;default:true"`
	SortOrder    int     `gorm:"column:sort_order;not null;default:0"`
	Available    bool    `gorm:"column:available;not null;default:true"`

	Group *DiscountGroup `gorm:"foreignKey:GroupID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Discount) TableName() string { return "discounts" }
