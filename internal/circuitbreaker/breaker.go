// Package circuitbreaker guards the remote campus-pay API. Repeated cycle
// failures open the circuit so scheduled ticks stop hammering a remote that
// is down; after a quiet period one probe cycle is let through.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	threshold     int
	openTimeout   time.Duration
	probing       bool
	lastFailureAt time.Time
	now           func() time.Time
}

type Config struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Default 3.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before a probe is
	// allowed. Default 2 minutes, one foreground cadence.
	OpenTimeout time.Duration
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 2 * time.Minute
	}
	return &Breaker{
		threshold:   cfg.FailureThreshold,
		openTimeout: cfg.OpenTimeout,
		now:         time.Now,
	}
}

// Allow reports whether a cycle may run. In half-open state only the first
// caller gets through; the rest are rejected until the probe resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) < b.openTimeout {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// Success records a completed cycle and closes the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.state = StateClosed
}

// Failure records a failed cycle. A failed probe reopens immediately;
// in closed state the circuit opens once the threshold is hit.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probing = false
	b.lastFailureAt = b.now()
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.lastFailureAt) >= b.openTimeout {
		b.state = StateHalfOpen
	}
	return b.state
}
