package enums

// EventType names the realtime event kinds fanned out to display clients.
type EventType string

const (
	EventOrderUpdate   EventType = "order_update"
	EventPaymentUpdate EventType = "payment_update"
	EventCatalogUpdate EventType = "catalog_update"
)

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}
