package models

import (
	"encoding/json"
	"time"

	"github.com/emberlane/pos-backend/pkg/enums"
)

// OrderHistory is the append-only archival projection of a completed order.
// Rows are written exactly once, when the live order is archived, and never
// mutated afterwards.
type OrderHistory struct {
	ID          uint              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     uint              `gorm:"column:order_id;not null;index"`
	OrderNumber int               `gorm:"column:order_number;not null"`
	StaffID     uint              `gorm:"column:staff_id;not null"`
	StaffName   string            `gorm:"column:staff_name;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null"`

	Subtotal float64 `gorm:"column:subtotal;not null"`
	Tax      float64 `gorm:"column:tax;not null"`
	CardFee  float64 `gorm:"column:card_fee;not null"`
	Tip      float64 `gorm:"column:tip;not null"`
	Total    float64 `gorm:"column:total;not null"`

	PaymentMethod *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	Notes         *string              `gorm:"column:notes"`

	GatewayPaymentID *string `gorm:"column:gateway_payment_id"`
	GatewayRefundID  *string `gorm:"column:gateway_refund_id"`

	CreatedAt  time.Time  `gorm:"column:created_at;not null"`
	ReadyAt    *time.Time `gorm:"column:ready_at"`
	DoneAt     *time.Time `gorm:"column:done_at"`
	RefundedAt *time.Time `gorm:"column:refunded_at"`
	ArchivedAt time.Time  `gorm:"column:archived_at;autoCreateTime"`

	ItemsData     json.RawMessage `gorm:"column:items_data;type:jsonb;not null"`
	DiscountsData json.RawMessage `gorm:"column:discounts_data;type:jsonb;not null"`
}

// TableName overrides the default pluralization.
func (OrderHistory) TableName() string { return "order_history" }
