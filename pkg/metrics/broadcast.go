package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pos"

// BroadcastMetrics records realtime fan-out activity.
type BroadcastMetrics struct {
	connected *prometheus.GaugeVec
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewBroadcastMetrics registers the broadcast metrics on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	connected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_connected_clients",
		Help:      "Currently connected realtime clients.",
	}, []string{"role"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_delivered",
		Help:      "Messages delivered to realtime clients.",
	}, []string{"role"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_dropped",
		Help:      "Messages dropped due to slow or failed clients.",
	}, []string{"role"})
	reg.MustRegister(connected, delivered, dropped)
	return &BroadcastMetrics{
		connected: connected,
		delivered: delivered,
		dropped:   dropped,
	}
}

// IncConnected bumps the connected gauge for a role.
func (b *BroadcastMetrics) IncConnected(role string) {
	if b == nil || b.connected == nil {
		return
	}
	b.connected.WithLabelValues(normalizeLabel(role)).Inc()
}

// DecConnected lowers the connected gauge for a role.
func (b *BroadcastMetrics) DecConnected(role string) {
	if b == nil || b.connected == nil {
		return
	}
	b.connected.WithLabelValues(normalizeLabel(role)).Dec()
}

// IncDelivered counts a delivered message for a role.
func (b *BroadcastMetrics) IncDelivered(role string) {
	if b == nil || b.delivered == nil {
		return
	}
	b.delivered.WithLabelValues(normalizeLabel(role)).Inc()
}

// IncDropped counts a dropped message for a role.
func (b *BroadcastMetrics) IncDropped(role string) {
	if b == nil || b.dropped == nil {
		return
	}
	b.dropped.WithLabelValues(normalizeLabel(role)).Inc()
}
