package broadcast

import (
	"encoding/json"

	"github.com/emberlane/pos-backend/pkg/enums"
)

// Envelope is the wire frame pushed to realtime clients.
type Envelope struct {
	Type enums.EventType `json:"type"`
	Data any             `json:"data"`
}

// OrderEvent is the full order projection pushed on every committed change.
type OrderEvent struct {
	OrderID uint              `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
	Action  string            `json:"action"`
	Order   any               `json:"order"`
}

// PaymentEvent notifies displays that a payment settled or was refunded.
type PaymentEvent struct {
	OrderID uint              `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
	Order   any               `json:"order"`
}

// CatalogEvent signals that menu or discount data changed and clients should
// refetch.
type CatalogEvent struct {
	Scope string `json:"scope"`
}

func encode(eventType enums.EventType, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Data: data})
}
