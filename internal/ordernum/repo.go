package ordernum

import (
	"context"
	"time"

	"gorm.io/gorm"

	pkgdb "github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/enums"
)

// Repository defines the queries the allocator needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	MaxNumberSince(ctx context.Context, since time.Time) (int, error)
	ActiveNumbers(ctx context.Context) (map[int]bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an allocator repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) MaxNumberSince(ctx context.Context, since time.Time) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("MAX(order_number)").
		Where("created_at >= ?", since).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ActiveNumbers locks the active rows so a concurrent creation cannot pick
// the same number before this transaction commits.
func (r *repository) ActiveNumbers(ctx context.Context) (map[int]bool, error) {
	var numbers []int
	err := pkgdb.LockForUpdate(r.db.WithContext(ctx).Table("orders")).
		Select("order_number").
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPrep, enums.OrderStatusReady}).
		Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	active := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		active[n] = true
	}
	return active, nil
}
