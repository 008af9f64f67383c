package broadcast

import (
	"sync"
	"time"

	"github.com/emberlane/pos-backend/pkg/enums"
)

// Conn is the transport a client speaks over. The websocket adapter in the
// API layer satisfies it; tests use in-memory fakes.
type Conn interface {
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}

// client is one registered display. All writes to its connection go through
// the single run loop, so frame order per client is the enqueue order.
type client struct {
	id   string
	role enums.ClientRole
	conn Conn

	out  chan []byte
	done chan struct{}

	mu    sync.Mutex
	watch map[uint]bool
}

func newClient(id string, role enums.ClientRole, conn Conn, buffer int) *client {
	if buffer < 1 {
		buffer = 1
	}
	return &client{
		id:    id,
		role:  role,
		conn:  conn,
		out:   make(chan []byte, buffer),
		done:  make(chan struct{}),
		watch: map[uint]bool{},
	}
}

func (c *client) watching(orderID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watch[orderID]
}

func (c *client) setWatch(orderID uint, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.watch[orderID] = true
		return
	}
	delete(c.watch, orderID)
}

// enqueue hands a frame to the writer without blocking the broadcaster.
// A full buffer means the client is too slow to keep up; the frame is
// dropped and the caller decides whether to evict.
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// run is the client's only writer. It drains the outbound buffer and keeps
// the connection alive with pings until close or a write failure.
func (c *client) run(writeTimeout, pingInterval time.Duration, onFailure func()) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.write(msg, writeTimeout); err != nil {
				onFailure()
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				onFailure()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(msg []byte, timeout time.Duration) error {
	type deadlineConn interface {
		SetWriteDeadline(t time.Time) error
	}
	if dc, ok := c.conn.(deadlineConn); ok && timeout > 0 {
		_ = dc.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(msg)
}

func (c *client) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
