package models

import "time"

// OrderItem snapshots a catalog item at order time so later price edits never
// alter historical orders.
type OrderItem struct {
	ID         uint    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    uint    `gorm:"column:order_id;not null;index"`
	ItemID     uint    `gorm:"column:item_id;not null"`
	Name       string  `gorm:"column:name;not null"`
	Quantity   int     `gorm:"column:quantity;not null;default:1"`
	ItemPrice  float64 `gorm:"column:item_price;not null"`
	ModsPrice  float64 `gorm:"column:mods_price;not null;default:0"`
	TotalPrice float64 `gorm:"column:total_price;not null"`
	Notes      *string `gorm:"column:notes"`

	Mods []OrderItemMod `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (OrderItem) TableName() string { return "order_items" }

// OrderItemMod is a frozen copy of a selected modifier.
type OrderItemMod struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderItemID uint    `gorm:"column:order_item_id;not null;index"`
	ModID       uint    `gorm:"column:mod_id;not null"`
	ModName     string  `gorm:"column:mod_name;not null"`
	ModPrice    float64 `gorm:"column:mod_price;not null"`
}

// TableName overrides the default pluralization.
func (OrderItemMod) TableName() string { return "order_item_mods" }
