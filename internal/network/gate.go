package network

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	"github.com/emberlane/pos-backend/pkg/config"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

// Gate scopes outbound connectivity to the duration of a card transaction.
// Acquire opens the window and returns a release that must run on every
// path, including failures.
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
	Online() bool
}

// Toggler flips the host firewall. The command implementation shells out to
// operator-provided scripts; tests substitute fakes.
type Toggler interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// NewGate builds a gate from config. With the gate disabled (the default,
// for venues with always-on internet) it is a no-op.
func NewGate(cfg config.NetworkConfig, logg *logger.Logger) (Gate, error) {
	if logg == nil {
		return nil, fmt.Errorf("network logger required")
	}
	if !cfg.GateEnabled {
		return noopGate{}, nil
	}
	if strings.TrimSpace(cfg.EnableCmd) == "" || strings.TrimSpace(cfg.DisableCmd) == "" {
		return nil, fmt.Errorf("network gate enabled but enable/disable commands missing")
	}
	return &refGate{
		toggler: commandToggler{enableCmd: cfg.EnableCmd, disableCmd: cfg.DisableCmd},
		logger:  logg,
	}, nil
}

// NewGateWithToggler wires a custom toggler, used by tests.
func NewGateWithToggler(toggler Toggler, logg *logger.Logger) (Gate, error) {
	if toggler == nil {
		return nil, fmt.Errorf("network toggler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("network logger required")
	}
	return &refGate{toggler: toggler, logger: logg}, nil
}

type noopGate struct{}

func (noopGate) Acquire(context.Context) (func(), error) { return func() {}, nil }
func (noopGate) Online() bool                            { return true }

// refGate reference-counts holders so overlapping card payments share one
// open window and the last release closes it.
type refGate struct {
	toggler Toggler
	logger  *logger.Logger

	mu      sync.Mutex
	holders int
}

func (g *refGate) Acquire(ctx context.Context) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holders == 0 {
		if err := g.toggler.Enable(ctx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enable network access")
		}
		g.logger.Info(ctx, "network gate opened")
	}
	g.holders++

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.holders--
			if g.holders > 0 {
				return
			}
			// Detached context: release runs on error paths where the
			// request context may already be canceled.
			if err := g.toggler.Disable(context.Background()); err != nil {
				g.logger.Error(context.Background(), "disable network access", err)
				return
			}
			g.logger.Info(context.Background(), "network gate closed")
		})
	}
	return release, nil
}

func (g *refGate) Online() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holders > 0
}

type commandToggler struct {
	enableCmd  string
	disableCmd string
}

func (t commandToggler) Enable(ctx context.Context) error {
	return runCommand(ctx, t.enableCmd)
}

func (t commandToggler) Disable(ctx context.Context) error {
	return runCommand(ctx, t.disableCmd)
}

func runCommand(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CheckConnection probes the configured health URL, typically the gateway's
// edge, to report whether card payments can succeed right now.
func CheckConnection(ctx context.Context, cfg config.NetworkConfig) bool {
	if strings.TrimSpace(cfg.CheckURL) == "" {
		return false
	}
	checkCtx := ctx
	if cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, cfg.CheckTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, cfg.CheckURL, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
