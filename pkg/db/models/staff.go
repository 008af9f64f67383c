package models

import "time"

// Staff is a till operator. The PIN is stored bcrypt-hashed; IsAdmin gates
// refunds and maintenance endpoints.
type Staff struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string `gorm:"column:name;not null"`
	PINHash   string `gorm:"column:pin_hash;not null"`
	IsAdmin   bool   `gorm:"column:is_admin;not null;default:false"`
	Available bool   `gorm:"column:available;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Staff) TableName() string { return "staff" }
