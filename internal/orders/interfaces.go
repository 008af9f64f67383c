package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
)

// ListFilters narrows order listings.
type ListFilters struct {
	Status *enums.OrderStatus
	Date   *time.Time
}

// Repository defines persistence operations for live orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uint) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID uint) (*models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	Update(ctx context.Context, orderID uint, updates map[string]any) error
	AddItem(ctx context.Context, item *models.OrderItem) error
	RemoveItem(ctx context.Context, orderID, orderItemID uint) error
	AddDiscount(ctx context.Context, discount *models.OrderDiscount) error
	RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) error
	UpdateDiscountAmount(ctx context.Context, orderDiscountID uint, amount float64) error
}
