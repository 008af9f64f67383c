package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Items.ModLists", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, mod_lists.id ASC")
		}).
		Preload("Items.ModLists.Mods", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		Preload("ModLists.Mods").
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListDiscountGroups(ctx context.Context) ([]models.DiscountGroup, error) {
	var groups []models.DiscountGroup
	err := r.db.WithContext(ctx).
		Preload("Discounts", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Order("sort_order ASC, id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) FindDiscount(ctx context.Context, discountID uint) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).
		Preload("Group").
		Where("id = ?", discountID).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}
