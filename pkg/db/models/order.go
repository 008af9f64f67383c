package models

import (
	"time"

	"github.com/emberlane/pos-backend/pkg/enums"
)

// Order is a live order on the floor. Totals are always recomputed by the
// pricing engine, never patched incrementally.
type Order struct {
	ID          uint              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber int               `gorm:"column:order_number;not null"`
	StaffID     uint              `gorm:"column:staff_id;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'prep'"`

	Subtotal float64             `gorm:"column:subtotal;not null;default:0"`
	Tax      float64             `gorm:"column:tax;not null;default:0"`
	CardFee  float64             `gorm:"column:card_fee;not null;default:0"`
	Tip      float64             `gorm:"column:tip;not null;default:0"`
	Total    float64             `gorm:"column:total;not null;default:0"`

	PaymentMethod *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	CashTendered  *float64             `gorm:"column:cash_tendered"`
	CashChange    *float64             `gorm:"column:cash_change"`
	Notes         *string              `gorm:"column:notes"`

	GatewayPaymentID *string `gorm:"column:gateway_payment_id"`
	GatewayRefundID  *string `gorm:"column:gateway_refund_id"`
	RefundAmount     float64 `gorm:"column:refund_amount;not null;default:0"`

	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ReadyAt    *time.Time `gorm:"column:ready_at"`
	DoneAt     *time.Time `gorm:"column:done_at"`
	RefundedAt *time.Time `gorm:"column:refunded_at"`

	Items     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Discounts []OrderDiscount `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default pluralization.
func (Order) TableName() string { return "orders" }

// TotalDiscount sums the resolved discount amounts applied to the order.
func (o *Order) TotalDiscount() float64 {
	var sum float64
	for _, d := range o.Discounts {
		sum += d.AmountApplied
	}
	return sum
}
