package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/pkg/db/models"
)

// Repository defines read access to the menu and discount tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindItem(ctx context.Context, itemID uint) (*models.Item, error)
	ListDiscountGroups(ctx context.Context) ([]models.DiscountGroup, error)
	FindDiscount(ctx context.Context, discountID uint) (*models.Discount, error)
}
