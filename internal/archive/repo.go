package archive

import (
	"context"
	"time"

	"gorm.io/gorm"

	pkgdb "github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
)

// HistoryFilters narrows archived-order lookups.
type HistoryFilters struct {
	Date  *time.Time
	Limit int
}

// Repository is the persistence surface for archival and renumbering.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListArchivable(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	StaffNames(ctx context.Context, staffIDs []uint) (map[uint]string, error)
	InsertHistory(ctx context.Context, row *models.OrderHistory) error
	DeleteOrder(ctx context.Context, orderID uint) error
	ListActiveForRenumber(ctx context.Context) ([]models.Order, error)
	UpdateOrderNumber(ctx context.Context, orderID uint, number int) error
	ListHistory(ctx context.Context, filters HistoryFilters) ([]models.OrderHistory, error)
	FindHistoryByOrderID(ctx context.Context, orderID uint) (*models.OrderHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an archive repository over the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

var terminalStatuses = []enums.OrderStatus{
	enums.OrderStatusDone,
	enums.OrderStatusVoid,
	enums.OrderStatusRefunded,
	enums.OrderStatusPartiallyRefunded,
}

// ListArchivable locks the terminal orders older than the cutoff so the
// archive-then-delete sequence cannot race a concurrent refund.
func (r *repository) ListArchivable(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := pkgdb.LockForUpdate(r.db.WithContext(ctx)).
		Where("status IN ?", terminalStatuses).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadChildren(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *repository) loadChildren(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).
		Preload("Mods").
		Where("order_id = ?", order.ID).
		Order("id ASC").
		Find(&order.Items).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("id ASC").
		Find(&order.Discounts).Error
}

func (r *repository) StaffNames(ctx context.Context, staffIDs []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(staffIDs))
	if len(staffIDs) == 0 {
		return names, nil
	}
	var rows []models.Staff
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Where("id IN ?", staffIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func (r *repository) InsertHistory(ctx context.Context, row *models.OrderHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// DeleteOrder removes the live row; children cascade.
func (r *repository) DeleteOrder(ctx context.Context, orderID uint) error {
	itemIDs := r.db.Model(&models.OrderItem{}).Select("id").Where("order_id = ?", orderID)
	if err := r.db.WithContext(ctx).
		Where("order_item_id IN (?)", itemIDs).Delete(&models.OrderItemMod{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).Delete(&models.OrderDiscount{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Order{}, orderID).Error
}

func (r *repository) ListActiveForRenumber(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := pkgdb.LockForUpdate(r.db.WithContext(ctx)).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPrep, enums.OrderStatusReady}).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateOrderNumber(ctx context.Context, orderID uint, number int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("order_number", number).Error
}

func (r *repository) ListHistory(ctx context.Context, filters HistoryFilters) ([]models.OrderHistory, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderHistory{})
	if filters.Date != nil {
		dayStart := filters.Date.Truncate(24 * time.Hour)
		q = q.Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour))
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	var rows []models.OrderHistory
	if err := q.Order("archived_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindHistoryByOrderID(ctx context.Context, orderID uint) (*models.OrderHistory, error) {
	var row models.OrderHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
