package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order from the kitchen to the till.
type OrderStatus string

const (
	OrderStatusPrep              OrderStatus = "prep"
	OrderStatusReady             OrderStatus = "ready"
	OrderStatusDone              OrderStatus = "done"
	OrderStatusVoid              OrderStatus = "void"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPrep,
	OrderStatusReady,
	OrderStatusDone,
	OrderStatusVoid,
	OrderStatusRefunded,
	OrderStatusPartiallyRefunded,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether an order with this status still holds its order
// number. Only active orders may be mutated.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusPrep || s == OrderStatusReady
}

// IsTerminal reports whether no further transition is legal except a refund
// out of done.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDone, OrderStatusVoid, OrderStatusRefunded, OrderStatusPartiallyRefunded:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
