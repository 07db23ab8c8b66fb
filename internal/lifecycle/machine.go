// Package lifecycle owns the life of one outstanding payment code:
// generation, validity window, settlement detection, expiry, and
// auto-renewal. The machine is a perpetual loop, not a terminal automaton;
// all mutable fields live behind one mutex and transitions are driven by an
// explicit refresh call plus a per-second tick.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/LakeLink/WE/internal/broker"
	"github.com/LakeLink/WE/internal/metrics"
	"github.com/LakeLink/WE/internal/tracing"
)

type State int

const (
	StateEmpty State = iota
	StateRequesting
	StateActive
	StateSettled
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateSettled:
		return "settled"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the machine for observers.
type Snapshot struct {
	State         State
	Content       string
	Balance       string
	CreatedAt     time.Time
	ValidUntil    time.Time
	SettledAmount string
}

// Machine drives one QR lifecycle. At most one code is active at a time;
// while active, its content is immutable.
type Machine struct {
	newBroker broker.Factory
	window    time.Duration
	tick      time.Duration
	logger    *slog.Logger

	// onSettled surfaces a detected settlement amount exactly once per
	// settled code. onError surfaces a failed refresh; the machine itself
	// never retries.
	onSettled func(amount string)
	onError   func(err error)

	limiter *rate.Limiter
	now     func() time.Time

	mu            sync.Mutex
	state         State
	api           broker.API
	content       string
	balance       string
	createdAt     time.Time
	validUntil    time.Time
	settledAmount string
	checkInFlight bool
}

type Option func(*Machine)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithSettledFunc sets the settlement surface.
func WithSettledFunc(fn func(amount string)) Option {
	return func(m *Machine) { m.onSettled = fn }
}

// WithErrorFunc sets the refresh-error surface.
func WithErrorFunc(fn func(err error)) Option {
	return func(m *Machine) { m.onError = fn }
}

func New(newBroker broker.Factory, window, tick time.Duration, logger *slog.Logger, opts ...Option) *Machine {
	if window <= 0 {
		window = 2 * time.Minute
	}
	if tick <= 0 {
		tick = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		newBroker: newBroker,
		window:    window,
		tick:      tick,
		logger:    logger.With("component", "qr_lifecycle"),
		// Redemption checks are capped at one per tick interval even when
		// ticks arrive faster than scheduled.
		limiter: rate.NewLimiter(rate.Every(tick), 1),
		now:     time.Now,
		state:   StateEmpty,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Snapshot returns the current lifecycle view.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:         m.state,
		Content:       m.content,
		Balance:       m.balance,
		CreatedAt:     m.createdAt,
		ValidUntil:    m.validUntil,
		SettledAmount: m.settledAmount,
	}
}

// Refresh runs one Empty/Settled/Expired -> Requesting -> Active cycle:
// re-authenticate, fetch balance, issue a new code. On failure the machine
// falls back to Empty and the error is surfaced; the caller decides whether
// to re-trigger.
func (m *Machine) Refresh(ctx context.Context) error {
	ctx, span := tracing.Tracer("lifecycle").Start(ctx, "lifecycle.refresh")
	defer span.End()

	m.mu.Lock()
	if m.state == StateRequesting {
		m.mu.Unlock()
		m.logger.Debug("refresh already in flight, skipping")
		return nil
	}
	m.state = StateRequesting
	m.settledAmount = ""
	m.mu.Unlock()

	start := m.now()
	err := m.request(ctx)
	metrics.QRRefreshLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QRRefreshTotal.WithLabelValues("error").Inc()
		m.mu.Lock()
		m.state = StateEmpty
		m.api = nil
		m.content = ""
		m.mu.Unlock()
		m.logger.Warn("refresh failed", "error", err)
		if m.onError != nil {
			m.onError(err)
		}
		return err
	}
	metrics.QRRefreshTotal.WithLabelValues("ok").Inc()
	return nil
}

func (m *Machine) request(ctx context.Context) error {
	api, err := m.newBroker(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	balance, err := api.Balance(ctx)
	if err != nil {
		return err
	}
	content, err := api.IssueQRCode(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	m.mu.Lock()
	m.api = api
	m.balance = balance
	m.content = content
	m.createdAt = now
	m.validUntil = now.Add(m.window)
	m.state = StateActive
	m.mu.Unlock()

	m.logger.Info("qr code active",
		"valid_until", m.validUntil,
		"balance", balance,
	)
	return nil
}

// Tick advances the machine once. While Active it checks expiry first, then
// settlement; a detected settlement renews immediately, an Expired code is
// renewed on the following tick. A tick that arrives while a redemption
// check is outstanding is skipped: checks for the same code never overlap.
func (m *Machine) Tick(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case StateSettled, StateExpired:
		m.mu.Unlock()
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("auto-renew failed", "error", err)
		}
		return
	case StateActive:
	default:
		m.mu.Unlock()
		return
	}

	// Expiry is decided before the in-flight guard so a slow redemption
	// check cannot delay the Expired transition past the window end.
	if !m.now().Before(m.validUntil) {
		m.state = StateExpired
		m.mu.Unlock()
		metrics.QRExpiredTotal.Inc()
		m.logger.Info("qr code expired")
		return
	}

	if m.checkInFlight {
		m.mu.Unlock()
		m.logger.Debug("redemption check still in flight, skipping tick")
		return
	}

	if !m.limiter.Allow() {
		m.mu.Unlock()
		return
	}

	m.checkInFlight = true
	api := m.api
	code := m.content
	m.mu.Unlock()

	result, err := api.CheckRedemption(ctx, code)
	metrics.QRRedemptionChecks.Inc()

	m.mu.Lock()
	m.checkInFlight = false
	// Expiry may have won the race, or a manual refresh replaced the code.
	if m.state != StateActive || m.content != code {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("redemption check failed", "error", err)
		return
	}
	if !result.Settled() {
		m.mu.Unlock()
		return
	}

	m.state = StateSettled
	m.settledAmount = *result.SettledAmount
	amount := m.settledAmount
	m.mu.Unlock()

	metrics.QRSettledTotal.Inc()
	m.logger.Info("qr code settled", "amount", amount)
	if m.onSettled != nil {
		m.onSettled(amount)
	}

	// A settled code is spent; roll straight into a fresh one instead of
	// waiting for the next tick.
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("renew after settlement failed", "error", err)
	}
}

// Run drives the machine from its own ticker until ctx is cancelled. The
// initial refresh is issued immediately.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("lifecycle stopping")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}
