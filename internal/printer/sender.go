package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/enums"
	"github.com/emberlane/pos-backend/pkg/logger"
)

// ReceiptJob is the payload shipped to the receipt printer bridge. The
// bridge daemon owns byte-level formatting; we only ship structured data.
type ReceiptJob struct {
	OrderNumber   int                  `json:"order_number"`
	Items         []ReceiptItem        `json:"items"`
	Subtotal      float64              `json:"subtotal"`
	Discount      float64              `json:"discount"`
	Tax           float64              `json:"tax"`
	CardFee       float64              `json:"card_fee"`
	Tip           float64              `json:"tip"`
	Total         float64              `json:"total"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	Tendered      *float64             `json:"tendered,omitempty"`
	Change        *float64             `json:"change,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ReceiptItem is one printed line.
type ReceiptItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Mods     []string `json:"mods,omitempty"`
}

// KDSJob is the payload shipped to the kitchen display bridge.
type KDSJob struct {
	OrderNumber int           `json:"order_number"`
	Items       []ReceiptItem `json:"items"`
	StaffName   string        `json:"staff_name,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Sender pushes jobs to the hardware bridges. Both calls are fire and
// forget: they return immediately and never fail the caller's transaction.
type Sender interface {
	PrintReceipt(ctx context.Context, job ReceiptJob)
	SendToKDS(ctx context.Context, job KDSJob)
}

type sender struct {
	cfg    config.PrinterConfig
	logger *logger.Logger
	dial   func(ctx context.Context, addr string) (net.Conn, error)
}

// NewSender builds the TCP sender from config.
func NewSender(cfg config.PrinterConfig, logg *logger.Logger) (Sender, error) {
	if logg == nil {
		return nil, fmt.Errorf("printer logger required")
	}
	s := &sender{cfg: cfg, logger: logg}
	s.dial = s.dialTCP
	return s, nil
}

func (s *sender) PrintReceipt(ctx context.Context, job ReceiptJob) {
	if !s.cfg.ReceiptEnabled || strings.TrimSpace(s.cfg.ReceiptAddr) == "" {
		return
	}
	go s.send(context.WithoutCancel(ctx), s.cfg.ReceiptAddr, "receipt", job)
}

func (s *sender) SendToKDS(ctx context.Context, job KDSJob) {
	if !s.cfg.KDSEnabled || strings.TrimSpace(s.cfg.KDSAddr) == "" {
		return
	}
	go s.send(context.WithoutCancel(ctx), s.cfg.KDSAddr, "kds", job)
}

func (s *sender) send(ctx context.Context, addr, kind string, job any) {
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"printer": kind, "addr": addr})

	payload, err := json.Marshal(job)
	if err != nil {
		s.logger.Error(ctx, "encode printer job", err)
		return
	}
	payload = append(payload, '\n')

	conn, err := s.dial(ctx, addr)
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("printer unreachable: %v", err))
		return
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("printer write failed: %v", err))
		return
	}
	s.logger.Info(ctx, "printer job sent")
}

func (s *sender) dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}
