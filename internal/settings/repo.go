package settings

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/pkg/db/models"
)

// Repository defines persistence for the singleton settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetCardFeeSettings(ctx context.Context) (*models.CardFeeSettings, error)
	UpdateCardFeeSettings(ctx context.Context, updates map[string]any) error
	GetSystemSettings(ctx context.Context) (*models.SystemSettings, error)
	SetLastCleanupAt(ctx context.Context, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetCardFeeSettings returns the singleton row, creating the default on
// first access so a fresh database still prices card fees.
func (r *repository) GetCardFeeSettings(ctx context.Context) (*models.CardFeeSettings, error) {
	var settings models.CardFeeSettings
	err := r.db.WithContext(ctx).Order("id ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	settings = models.CardFeeSettings{Available: true, PercentageAmount: 0.05, MinFee: 0.30}
	if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) UpdateCardFeeSettings(ctx context.Context, updates map[string]any) error {
	current, err := r.GetCardFeeSettings(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.CardFeeSettings{}).
		Where("id = ?", current.ID).
		Updates(updates).Error
}

// GetSystemSettings returns the singleton row, creating it on first access.
func (r *repository) GetSystemSettings(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.db.WithContext(ctx).Order("id ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	settings = models.SystemSettings{Timezone: "America/Los_Angeles"}
	if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) SetLastCleanupAt(ctx context.Context, at time.Time) error {
	current, err := r.GetSystemSettings(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.SystemSettings{}).
		Where("id = ?", current.ID).
		Update("last_cleanup_at", at).Error
}
