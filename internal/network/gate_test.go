package network

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type fakeToggler struct {
	mu       sync.Mutex
	enables  int
	disables int
	failOn   error
}

func (f *fakeToggler) Enable(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return f.failOn
	}
	f.enables++
	return nil
}

func (f *fakeToggler) Disable(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disables++
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
}

func TestGateOpensOnceForOverlappingHolders(t *testing.T) {
	toggler := &fakeToggler{}
	gate, err := NewGateWithToggler(toggler, testLogger())
	if err != nil {
		t.Fatalf("gate construction failed: %v", err)
	}
	ctx := context.Background()

	release1, err := gate.Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	release2, err := gate.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if toggler.enables != 1 {
		t.Fatalf("enables = %d, want 1", toggler.enables)
	}
	if !gate.Online() {
		t.Fatal("gate should report online while held")
	}

	release1()
	if toggler.disables != 0 {
		t.Fatalf("disabled while still held, disables = %d", toggler.disables)
	}
	release2()
	if toggler.disables != 1 {
		t.Fatalf("disables = %d, want 1", toggler.disables)
	}
	if gate.Online() {
		t.Fatal("gate should report offline after final release")
	}
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	toggler := &fakeToggler{}
	gate, err := NewGateWithToggler(toggler, testLogger())
	if err != nil {
		t.Fatalf("gate construction failed: %v", err)
	}

	release, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release()
	if toggler.disables != 1 {
		t.Fatalf("disables = %d, want 1 after double release", toggler.disables)
	}
}

func TestGateAcquireFailureSurfaces(t *testing.T) {
	toggler := &fakeToggler{failOn: errors.New("iptables not permitted")}
	gate, err := NewGateWithToggler(toggler, testLogger())
	if err != nil {
		t.Fatalf("gate construction failed: %v", err)
	}

	if _, err := gate.Acquire(context.Background()); err == nil {
		t.Fatal("expected acquire to fail")
	}
	if gate.Online() {
		t.Fatal("gate should not report online after failed acquire")
	}
}

func TestDisabledGateIsNoop(t *testing.T) {
	gate, err := NewGate(config.NetworkConfig{GateEnabled: false}, testLogger())
	if err != nil {
		t.Fatalf("gate construction failed: %v", err)
	}
	release, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	if !gate.Online() {
		t.Fatal("noop gate always reports online")
	}
}

func TestEnabledGateRequiresCommands(t *testing.T) {
	_, err := NewGate(config.NetworkConfig{GateEnabled: true}, testLogger())
	if err == nil {
		t.Fatal("expected error when gate enabled without commands")
	}
}
