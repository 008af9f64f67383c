package staff

import (
	"context"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/pkg/db/models"
)

// Repository is the persistence surface for till operators.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, staffID uint) (*models.Staff, error)
	ListAvailable(ctx context.Context) ([]models.Staff, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a staff repository over the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, staffID uint) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).First(&staff, staffID).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *repository) ListAvailable(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("name ASC").
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	return staff, nil
}
