package models

import "time"

// CardFeeSettings is the process-wide card surcharge configuration read by
// the pricing engine. Single row, mutated only by admins.
type CardFeeSettings struct {
	ID               uint    `gorm:"column:id;primaryKey;autoIncrement"`
	Available        bool    `gorm:"column:available;not null;default:true"`
	PercentageAmount float64 `gorm:"column:percentage_amount;not null;default:0.05"`
	MinFee           float64 `gorm:"column:min_fee;not null;default:0.30"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CardFeeSettings) TableName() string { return "card_fee_settings" }

// SystemSettings records operational state for the cleanup scheduler.
type SystemSettings struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement"`
	LastCleanupAt *time.Time `gorm:"column:last_cleanup_at"`
	Timezone      string     `gorm:"column:timezone;not null;default:'America/Los_Angeles'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (SystemSettings) TableName() string { return "system_settings" }
