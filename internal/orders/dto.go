package orders

import (
	"time"

	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
)

// OrderProjection is the full externally-visible order shape, shared by the
// HTTP responses and the realtime broadcasts so every consumer sees the same
// thing.
type OrderProjection struct {
	ID          uint              `json:"id"`
	OrderNumber int               `json:"order_number"`
	StaffID     uint              `json:"staff_id"`
	Status      enums.OrderStatus `json:"status"`

	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"total_discount"`
	Tax           float64 `json:"tax"`
	CardFee       float64 `json:"card_fee"`
	Tip           float64 `json:"tip"`
	Total         float64 `json:"total"`

	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	CashTendered  *float64             `json:"cash_tendered,omitempty"`
	CashChange    *float64             `json:"cash_change,omitempty"`
	RefundAmount  float64              `json:"refund_amount"`
	Notes         *string              `json:"notes,omitempty"`

	Items     []ItemProjection     `json:"items"`
	Discounts []DiscountProjection `json:"discounts"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ReadyAt    *time.Time `json:"ready_at,omitempty"`
	DoneAt     *time.Time `json:"done_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

// ItemProjection is one frozen order line.
type ItemProjection struct {
	ID         uint            `json:"id"`
	ItemID     uint            `json:"item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	ItemPrice  float64         `json:"item_price"`
	ModsPrice  float64         `json:"mods_price"`
	TotalPrice float64         `json:"total_price"`
	Notes      *string         `json:"notes,omitempty"`
	Mods       []ModProjection `json:"mods"`
}

// ModProjection is one frozen modifier selection.
type ModProjection struct {
	ID    uint    `json:"id"`
	ModID uint    `json:"mod_id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// DiscountProjection is one applied discount, already resolved to currency.
type DiscountProjection struct {
	ID            uint    `json:"id"`
	DiscountID    uint    `json:"discount_id"`
	Name          string  `json:"name"`
	AmountApplied float64 `json:"amount_applied"`
}

// Project flattens a model order into its external shape.
func Project(order *models.Order) OrderProjection {
	items := make([]ItemProjection, 0, len(order.Items))
	for _, item := range order.Items {
		mods := make([]ModProjection, 0, len(item.Mods))
		for _, mod := range item.Mods {
			mods = append(mods, ModProjection{
				ID:    mod.ID,
				ModID: mod.ModID,
				Name:  mod.ModName,
				Price: mod.ModPrice,
			})
		}
		items = append(items, ItemProjection{
			ID:         item.ID,
			ItemID:     item.ItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			ItemPrice:  item.ItemPrice,
			ModsPrice:  item.ModsPrice,
			TotalPrice: item.TotalPrice,
			Notes:      item.Notes,
			Mods:       mods,
		})
	}

	discounts := make([]DiscountProjection, 0, len(order.Discounts))
	for _, d := range order.Discounts {
		discounts = append(discounts, DiscountProjection{
			ID:            d.ID,
			DiscountID:    d.DiscountID,
			Name:          d.Name,
			AmountApplied: d.AmountApplied,
		})
	}

	return OrderProjection{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		StaffID:       order.StaffID,
		Status:        order.Status,
		Subtotal:      order.Subtotal,
		TotalDiscount: order.TotalDiscount(),
		Tax:           order.Tax,
		CardFee:       order.CardFee,
		Tip:           order.Tip,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		CashTendered:  order.CashTendered,
		CashChange:    order.CashChange,
		RefundAmount:  order.RefundAmount,
		Notes:         order.Notes,
		Items:         items,
		Discounts:     discounts,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		ReadyAt:       order.ReadyAt,
		DoneAt:        order.DoneAt,
		RefundedAt:    order.RefundedAt,
	}
}
