package controllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 4096
)

var pongMessage = []byte(`{"type":"pong"}`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients connect from kitchen displays and registers on the LAN, not
	// from browsers with a meaningful Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to the hub's transport interface. The
// mutex serializes the hub's writer goroutine with pong replies from the
// read loop; gorilla connections allow only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// clientMessage is the inbound envelope for watch subscriptions.
type clientMessage struct {
	Type    string `json:"type"`
	OrderID uint   `json:"order_id"`
}

// Realtime upgrades the connection and registers the client with the hub.
// The client stays registered until the socket closes.
func Realtime(hub *broadcast.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := enums.ParseClientRole(chi.URLParam(r, "role"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client role"))
			return
		}
		clientID := chi.URLParam(r, "clientID")
		if clientID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "client id required"))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote an HTTP error to the client.
			logg.Error(r.Context(), "websocket upgrade failed", err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"client_id": clientID,
			"role":      string(role),
		})

		client := &wsConn{conn: conn}
		if err := hub.Register(ctx, clientID, role, client); err != nil {
			_ = conn.Close()
			logg.Error(ctx, "websocket register failed", err)
			return
		}
		logg.Info(ctx, "websocket client connected")

		defer func() {
			hub.Unregister(ctx, clientID)
			logg.Info(ctx, "websocket client disconnected")
		}()

		conn.SetReadLimit(wsReadLimit)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "ping":
				if err := client.WriteMessage(pongMessage); err != nil {
					return
				}
			case "watch_order":
				hub.Watch(clientID, msg.OrderID)
			case "unwatch_order":
				hub.Unwatch(clientID, msg.OrderID)
			}
		}
	}
}
