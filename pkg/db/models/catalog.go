package models

import "time"

// Category groups menu items for display ordering.
type Category struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string `gorm:"column:name;not null"`
	SortOrder int    `gorm:"column:sort_order;not null;default:0"`
	Available bool   `gorm:"column:available;not null;default:true"`

	Items []Item `gorm:"foreignKey:CategoryID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Category) TableName() string { return "categories" }

// Item is a sellable menu entry. Orders copy its price at order time rather
// than referencing it.
type Item struct {
	ID         uint    `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryID uint    `gorm:"column:category_id;not null;index"`
	Name       string  `gorm:"column:name;not null"`
	Price      float64 `gorm:"column:price;not null"`
	SortOrder  int     `gorm:"column:sort_order;not null;default:0"`
	Available  bool    `gorm:"column:available;not null;default:true"`

	ModLists []ModList `gorm:"many2many:item_mod_lists;"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Item) TableName() string { return "items" }

// ModList bounds how many modifiers may be selected from it per item.
type ModList struct {
	ID            uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string `gorm:"column:name;not null"`
	MinSelections int    `gorm:"column:min_selections;not null;default:0"`
	MaxSelections *int   `gorm:"column:max_selections"`
	SortOrder     int    `gorm:"column:sort_order;not null;default:0"`
	Available     bool   `gorm:"column:available;not null;default:true"`

	Mods []Mod `gorm:"foreignKey:ModListID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (ModList) TableName() string { return "mod_lists" }

// Mod is a single modifier option within a list.
type Mod struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement"`
	ModListID uint    `gorm:"column:mod_list_id;not null;index"`
	Name      string  `gorm:"column:name;not null"`
	Price     float64 `gorm:"column:price;not null;default:0"`
	SortOrder int     `gorm:"column:sort_order;not null;default:0"`
	Available bool    `gorm:"column:available;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Mod) TableName() string { return "mods" }
