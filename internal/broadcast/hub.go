package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
	"github.com/emberlane/pos-backend/pkg/metrics"
)

// Hub fans order, payment, and catalog events out to registered displays.
// Delivery is best effort: a slow or dead client loses frames or gets
// evicted, the rest are unaffected, and business transactions never wait on
// the hub.
type Hub struct {
	cfg     config.BroadcastConfig
	logger  *logger.Logger
	metrics *metrics.BroadcastMetrics

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub builds a hub. Metrics may be nil.
func NewHub(cfg config.BroadcastConfig, logg *logger.Logger, m *metrics.BroadcastMetrics) (*Hub, error) {
	if logg == nil {
		return nil, fmt.Errorf("broadcast logger required")
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	// A zero interval would panic the writer's ping ticker.
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Hub{
		cfg:     cfg,
		logger:  logg,
		metrics: m,
		clients: map[string]*client{},
	}, nil
}

// Register adds a client and starts its writer. A reconnect with the same id
// replaces the previous registration.
func (h *Hub) Register(ctx context.Context, id string, role enums.ClientRole, conn Conn) error {
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown client role")
	}
	if conn == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client connection required")
	}

	c := newClient(id, role, conn, h.cfg.SendBuffer)

	h.mu.Lock()
	if prev, ok := h.clients[id]; ok {
		prev.close()
		h.metrics.DecConnected(string(prev.role))
	}
	h.clients[id] = c
	h.mu.Unlock()

	h.metrics.IncConnected(string(role))
	go c.run(h.cfg.WriteTimeout, h.cfg.PingInterval, func() {
		h.evict(ctx, c)
	})

	h.logger.Info(h.logger.WithFields(ctx, map[string]any{
		"client_id": id,
		"role":      string(role),
	}), "realtime client registered")
	return nil
}

// Unregister removes a client and stops its writer.
func (h *Hub) Unregister(ctx context.Context, id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	h.metrics.DecConnected(string(c.role))
	h.logger.Info(h.logger.WithFields(ctx, map[string]any{"client_id": id}), "realtime client unregistered")
}

// Watch subscribes a client to one order's updates.
func (h *Hub) Watch(clientID string, orderID uint) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if ok {
		c.setWatch(orderID, true)
	}
}

// Unwatch drops a client's subscription to one order.
func (h *Hub) Unwatch(clientID string, orderID uint) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if ok {
		c.setWatch(orderID, false)
	}
}

// BroadcastOrderUpdate pushes the full order projection. POS terminals get
// every order; customer displays only orders they watch; kitchen displays
// only orders still in the kitchen (PREP or READY).
func (h *Hub) BroadcastOrderUpdate(ctx context.Context, event OrderEvent) {
	msg, err := encode(enums.EventOrderUpdate, event)
	if err != nil {
		h.logger.Error(ctx, "encode order update", err)
		return
	}
	h.fanOut(ctx, msg, func(c *client) bool {
		switch c.role {
		case enums.ClientRolePOS:
			return true
		case enums.ClientRoleCustomerDisplay:
			return c.watching(event.OrderID)
		case enums.ClientRoleKitchenDisplay:
			return event.Status.IsActive()
		}
		return false
	})
}

// BroadcastPaymentUpdate notifies POS terminals and watchers of the order.
func (h *Hub) BroadcastPaymentUpdate(ctx context.Context, event PaymentEvent) {
	msg, err := encode(enums.EventPaymentUpdate, event)
	if err != nil {
		h.logger.Error(ctx, "encode payment update", err)
		return
	}
	h.fanOut(ctx, msg, func(c *client) bool {
		switch c.role {
		case enums.ClientRolePOS:
			return true
		case enums.ClientRoleCustomerDisplay:
			return c.watching(event.OrderID)
		}
		return false
	})
}

// BroadcastCatalogUpdate tells every client to refetch menu data.
func (h *Hub) BroadcastCatalogUpdate(ctx context.Context, event CatalogEvent) {
	msg, err := encode(enums.EventCatalogUpdate, event)
	if err != nil {
		h.logger.Error(ctx, "encode catalog update", err)
		return
	}
	h.fanOut(ctx, msg, func(*client) bool { return true })
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// fanOut snapshots the registry under the read lock, then enqueues outside
// it so a stuck client cannot hold up registration.
func (h *Hub) fanOut(ctx context.Context, msg []byte, include func(*client) bool) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if include(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.enqueue(msg) {
			h.metrics.IncDelivered(string(c.role))
			continue
		}
		h.metrics.IncDropped(string(c.role))
		h.logger.Warn(h.logger.WithFields(ctx, map[string]any{
			"client_id": c.id,
			"role":      string(c.role),
		}), "realtime client buffer full, frame dropped")
	}
}

// evict removes a client whose connection failed mid-write.
func (h *Hub) evict(ctx context.Context, c *client) {
	h.mu.Lock()
	current, ok := h.clients[c.id]
	if ok && current == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	if !ok || current != c {
		return
	}
	c.close()
	h.metrics.DecConnected(string(c.role))
	h.logger.Warn(h.logger.WithFields(ctx, map[string]any{
		"client_id": c.id,
		"role":      string(c.role),
	}), "realtime client evicted after write failure")
}
