package models

import "time"

// OrderDiscount freezes the application of a discount to an order. The amount
// is already resolved to currency, never a raw percentage.
type OrderDiscount struct {
	ID            uint    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       uint    `gorm:"column:order_id;not null;index"`
	DiscountID    uint    `gorm:"column:discount_id;not null"`
	Name          string  `gorm:"column:name;not null"`
	AmountApplied float64 `gorm:"column:amount_applied;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (OrderDiscount) TableName() string { return "order_discounts" }
