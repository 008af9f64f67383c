package printer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
}

// startBridge listens like a printer bridge daemon and forwards one line per
// connection.
func startBridge(t *testing.T) (string, chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	lines := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}(conn)
		}
	}()
	return ln.Addr().String(), lines
}

func waitLine(t *testing.T, lines chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for printer frame")
		return ""
	}
}

func TestPrintReceiptShipsJSON(t *testing.T) {
	addr, lines := startBridge(t)
	s, err := NewSender(config.PrinterConfig{
		ReceiptAddr:    addr,
		ReceiptEnabled: true,
		SendTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("sender construction failed: %v", err)
	}

	tendered := 30.00
	change := 6.37
	s.PrintReceipt(context.Background(), ReceiptJob{
		OrderNumber: 17,
		Items:       []ReceiptItem{{Name: "Burger", Quantity: 2, Price: 21.50, Mods: []string{"Cheddar"}}},
		Subtotal:    23.00,
		Discount:    2.30,
		Tax:         1.80,
		CardFee:     1.13,
		Total:       23.63,
		Tendered:    &tendered,
		Change:      &change,
		Timestamp:   time.Now(),
	})

	var job ReceiptJob
	if err := json.Unmarshal([]byte(waitLine(t, lines)), &job); err != nil {
		t.Fatalf("frame not json: %v", err)
	}
	if job.OrderNumber != 17 || job.Total != 23.63 {
		t.Fatalf("wrong job shipped: %+v", job)
	}
	if job.Change == nil || *job.Change != 6.37 {
		t.Fatalf("change missing from receipt: %+v", job)
	}
}

func TestSendToKDSShipsJSON(t *testing.T) {
	addr, lines := startBridge(t)
	s, err := NewSender(config.PrinterConfig{
		KDSAddr:     addr,
		KDSEnabled:  true,
		SendTimeout: time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("sender construction failed: %v", err)
	}

	s.SendToKDS(context.Background(), KDSJob{
		OrderNumber: 4,
		Items:       []ReceiptItem{{Name: "Fries", Quantity: 1, Price: 3.50}},
		StaffName:   "Sam",
		Timestamp:   time.Now(),
	})

	var job KDSJob
	if err := json.Unmarshal([]byte(waitLine(t, lines)), &job); err != nil {
		t.Fatalf("frame not json: %v", err)
	}
	if job.OrderNumber != 4 || job.StaffName != "Sam" {
		t.Fatalf("wrong job shipped: %+v", job)
	}
}

func TestDisabledPrinterDoesNothing(t *testing.T) {
	addr, lines := startBridge(t)
	s, err := NewSender(config.PrinterConfig{
		ReceiptAddr:    addr,
		ReceiptEnabled: false,
		SendTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("sender construction failed: %v", err)
	}

	s.PrintReceipt(context.Background(), ReceiptJob{OrderNumber: 1})
	select {
	case <-lines:
		t.Fatal("disabled printer still shipped a frame")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnreachablePrinterDoesNotBlockCaller(t *testing.T) {
	s, err := NewSender(config.PrinterConfig{
		ReceiptAddr:    "127.0.0.1:1",
		ReceiptEnabled: true,
		SendTimeout:    200 * time.Millisecond,
	}, testLogger())
	if err != nil {
		t.Fatalf("sender construction failed: %v", err)
	}

	start := time.Now()
	s.PrintReceipt(context.Background(), ReceiptJob{OrderNumber: 1})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("PrintReceipt blocked for %v", elapsed)
	}
}
