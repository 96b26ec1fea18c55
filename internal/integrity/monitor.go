// Package integrity watches full-screen and clipboard signals during an
// in-progress session and enforces the full-screen exit limit.
package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/clock"
)

const (
	DefaultMaxExits     = 3
	DefaultReentryDelay = time.Second
)

type Config struct {
	MaxExits     int           `validate:"min=1"`
	ReentryDelay time.Duration `validate:"min=0"`
}

// Hooks are invoked after a verdict is reached, outside the monitor's lock.
// Any of them may be nil.
type Hooks struct {
	OnCopyBlocked func(Verdict)
	OnViolation   func(Verdict)
	OnTerminate   func(Verdict)
	OnRestored    func(Verdict)
	OnRefused     func(Verdict)
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Running    bool `json:"running"`
	Fullscreen bool `json:"fullscreen"`
	Degraded   bool `json:"degraded"`
	Exits      int  `json:"exits"`
	MaxExits   int  `json:"max_exits"`
}

type Monitor struct {
	surface Surface
	clk     clock.Clock
	cfg     Config
	logger  *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	hooks       Hooks
	running     bool
	suspended   bool
	fullscreen  bool
	degraded    bool
	exits       int
	reentry     clock.Timer
	unsubscribe func()
}

func NewMonitor(surface Surface, clk clock.Clock, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.MaxExits <= 0 {
		cfg.MaxExits = DefaultMaxExits
	}
	if cfg.ReentryDelay < 0 {
		cfg.ReentryDelay = DefaultReentryDelay
	}
	return &Monitor{
		surface: surface,
		clk:     clk,
		cfg:     cfg,
		logger:  logger.With("component", "integrity_monitor"),
	}
}

// Start subscribes to the surface, resets the exit counter and asks for
// full-screen. A refused or failed request only degrades the guarantee: the
// error is returned for reporting and the monitor keeps running.
func (m *Monitor) Start(ctx context.Context, hooks Hooks) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.ctx = ctx
	m.hooks = hooks
	m.running = true
	m.suspended = false
	m.fullscreen = false
	m.degraded = false
	m.exits = 0
	m.unsubscribe = m.surface.Subscribe(m.handle)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Integrity monitor started", "max_exits", m.cfg.MaxExits)
	return m.RequestFullscreen(ctx)
}

// Stop unsubscribes and cancels any pending re-entry request. It is safe to
// call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.stopReentryLocked()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.logger.Info("Integrity monitor stopped")
}

// Suspend stops counting full-screen exits while a submission is in flight.
// Copy attempts are still suppressed.
func (m *Monitor) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
	m.stopReentryLocked()
}

// Resume counts exits again. It returns VerdictTerminate when the limit was
// already reached, and VerdictWarning when the host left full-screen while
// suspended; in that case re-entry is scheduled as after a counted exit.
// Hooks are not invoked.
func (m *Monitor) Resume() Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = false

	switch {
	case !m.running:
		return ignored()
	case m.exits >= m.cfg.MaxExits:
		return Verdict{
			Kind:    VerdictTerminate,
			Exits:   m.exits,
			Message: fmt.Sprintf("You left full-screen %d times. The test has been terminated.", m.exits),
		}
	case !m.fullscreen && !m.degraded:
		m.scheduleReentryLocked()
		return Verdict{
			Kind:           VerdictWarning,
			Exits:          m.exits,
			RemainingExits: m.remainingLocked(),
			Message:        "Full-screen was left during submission. Return to full-screen to continue the test.",
		}
	}
	return ignored()
}

// RequestFullscreen asks the surface for full-screen presentation. It is the
// manual re-entry affordance as well as the automatic one.
func (m *Monitor) RequestFullscreen(ctx context.Context) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return nil
	}

	if err := m.surface.RequestFullscreen(ctx); err != nil {
		m.mu.Lock()
		m.degraded = true
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "Full-screen request failed", "error", err)
		return fmt.Errorf("request full-screen: %w", err)
	}
	return nil
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Running:    m.running,
		Fullscreen: m.fullscreen,
		Degraded:   m.degraded,
		Exits:      m.exits,
		MaxExits:   m.cfg.MaxExits,
	}
}

func (m *Monitor) handle(sig Signal) Verdict {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ignored()
	}
	v := m.evaluateLocked(sig)
	hooks := m.hooks
	m.mu.Unlock()

	var hook func(Verdict)
	switch v.Kind {
	case VerdictCopyBlocked:
		hook = hooks.OnCopyBlocked
	case VerdictWarning:
		hook = hooks.OnViolation
	case VerdictTerminate:
		hook = hooks.OnTerminate
	case VerdictRestored:
		hook = hooks.OnRestored
	case VerdictRefused:
		hook = hooks.OnRefused
	}
	if hook != nil {
		hook(v)
	}
	return v
}

func (m *Monitor) evaluateLocked(sig Signal) Verdict {
	if sig.IsCopyAttempt() {
		return Verdict{
			Kind:           VerdictCopyBlocked,
			PreventDefault: true,
			Exits:          m.exits,
			RemainingExits: m.remainingLocked(),
			Message:        "Copying is not allowed during the test.",
		}
	}

	switch sig.Kind {
	case SignalFullscreenChange:
		if sig.Active {
			return m.enteredLocked()
		}
		return m.exitedLocked()
	case SignalFullscreenRefused:
		m.degraded = true
		return Verdict{
			Kind:           VerdictRefused,
			Exits:          m.exits,
			RemainingExits: m.remainingLocked(),
			Message:        "Full-screen was refused by the browser. Use the full-screen button to re-enter.",
		}
	}
	return ignored()
}

func (m *Monitor) enteredLocked() Verdict {
	was := m.fullscreen
	m.fullscreen = true
	m.degraded = false
	m.stopReentryLocked()
	if was {
		return ignored()
	}
	return Verdict{Kind: VerdictRestored, Exits: m.exits, RemainingExits: m.remainingLocked()}
}

func (m *Monitor) exitedLocked() Verdict {
	// Only a transition out of full-screen is an exit.
	if !m.fullscreen {
		return ignored()
	}
	m.fullscreen = false
	if m.suspended {
		return ignored()
	}

	m.exits++
	if m.exits >= m.cfg.MaxExits {
		m.stopReentryLocked()
		return Verdict{
			Kind:    VerdictTerminate,
			Exits:   m.exits,
			Message: fmt.Sprintf("You left full-screen %d times. The test has been terminated.", m.exits),
		}
	}

	m.scheduleReentryLocked()
	remaining := m.remainingLocked()
	return Verdict{
		Kind:           VerdictWarning,
		Exits:          m.exits,
		RemainingExits: remaining,
		Message: fmt.Sprintf("You have left full-screen. The test will be terminated after %d more exit(s).",
			remaining),
	}
}

// remainingLocked is the number of further exits that leads to termination.
func (m *Monitor) remainingLocked() int {
	r := m.cfg.MaxExits - m.exits
	if r < 0 {
		return 0
	}
	return r
}

func (m *Monitor) scheduleReentryLocked() {
	m.stopReentryLocked()
	m.reentry = m.clk.AfterFunc(m.cfg.ReentryDelay, m.reenter)
}

func (m *Monitor) stopReentryLocked() {
	if m.reentry != nil {
		m.reentry.Stop()
		m.reentry = nil
	}
}

func (m *Monitor) reenter() {
	m.mu.Lock()
	if !m.running || m.fullscreen || m.suspended {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	m.reentry = nil
	m.mu.Unlock()

	_ = m.RequestFullscreen(ctx)
}
