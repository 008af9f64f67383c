package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	pkgdb "github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Mods").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Discounts").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row. Item and discount rows are loaded
// after the lock so mutations inside the transaction see a stable order.
func (r *repository) FindByIDForUpdate(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := pkgdb.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Preload("Mods").
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&order.Discounts).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items.Mods").
		Preload("Discounts")
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Date != nil {
		dayStart := filters.Date.Truncate(24 * time.Hour)
		query = query.Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour))
	}

	var orders []models.Order
	if err := query.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, orderID uint, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) AddItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) RemoveItem(ctx context.Context, orderID, orderItemID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", orderItemID, orderID).
		Delete(&models.OrderItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AddDiscount(ctx context.Context, discount *models.OrderDiscount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *repository) RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", orderDiscountID, orderID).
		Delete(&models.OrderDiscount{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateDiscountAmount(ctx context.Context, orderDiscountID uint, amount float64) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderDiscount{}).
		Where("id = ?", orderDiscountID).
		Update("amount_applied", amount).Error
}
