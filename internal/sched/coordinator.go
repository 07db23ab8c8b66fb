// Package sched drives the two watcher loops under their two cadences: a
// repeating foreground tick and sparse externally-invoked background
// cycles. The coordinator is the single writer for the high-water mark and
// the "cycle in flight" state; foreground and background never run
// concurrently.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/LakeLink/WE/internal/circuitbreaker"
	"github.com/LakeLink/WE/internal/lifecycle"
	"github.com/LakeLink/WE/internal/metrics"
	"github.com/LakeLink/WE/internal/notify"
	"github.com/LakeLink/WE/internal/tracing"
	"github.com/LakeLink/WE/internal/watcher"
)

// ErrCycleInFlight is returned when a cycle is requested while another one
// is still running.
var ErrCycleInFlight = errors.New("refresh cycle already in flight")

// notificationTitle matches the upstream alert title for new transactions.
const notificationTitle = "Gugugu"

type Config struct {
	ForegroundInterval time.Duration
	// BackgroundDeadline bounds one externally-granted cycle. When it is
	// about to expire the in-flight work is abandoned and failure reported
	// rather than blocking the external scheduler.
	BackgroundDeadline time.Duration
}

type Coordinator struct {
	machine *lifecycle.Machine
	watcher *watcher.Watcher
	breaker *circuitbreaker.Breaker
	health  *Health
	// alerts carries health and recovery notices; feed carries the
	// per-transaction notifications and sits behind the user's toggle.
	alerts notify.Notifier
	feed   notify.Notifier
	cfg    Config
	logger *slog.Logger

	cron *cron.Cron

	mu       sync.Mutex
	inFlight bool
}

func New(
	machine *lifecycle.Machine,
	w *watcher.Watcher,
	breaker *circuitbreaker.Breaker,
	alerts, feed notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.ForegroundInterval <= 0 {
		cfg.ForegroundInterval = 2 * time.Minute
	}
	if cfg.BackgroundDeadline <= 0 {
		cfg.BackgroundDeadline = 25 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		machine: machine,
		watcher: w,
		breaker: breaker,
		health:  NewHealth(),
		alerts:  alerts,
		feed:    feed,
		cfg:     cfg,
		logger:  logger.With("component", "coordinator"),
	}
}

// Health exposes the cycle health tracker.
func (c *Coordinator) Health() *Health {
	return c.health
}

// Run starts the foreground cadence and blocks until ctx is cancelled. The
// first refresh fires immediately, then every ForegroundInterval.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("foreground cadence started", "interval", c.cfg.ForegroundInterval)

	c.foregroundTick(ctx)

	c.cron = cron.New()
	_, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.cfg.ForegroundInterval), func() {
		c.foregroundTick(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule foreground cadence: %w", err)
	}
	c.cron.Start()

	<-ctx.Done()
	stopCtx := c.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		c.logger.Warn("foreground cadence did not drain in time")
	}
	c.logger.Info("foreground cadence stopped")
	return ctx.Err()
}

// foregroundTick runs the full refresh path: QR refresh plus a feed poll.
// The same operation a manual trigger performs.
func (c *Coordinator) foregroundTick(ctx context.Context) {
	metrics.ForegroundTicksTotal.Inc()
	if err := c.runCycle(ctx, "foreground", true); err != nil {
		if errors.Is(err, ErrCycleInFlight) || errors.Is(err, circuitbreaker.ErrOpen) {
			return
		}
		c.logger.Warn("foreground cycle failed", "error", err)
	}
}

// RunBackgroundCycle executes exactly one feed poll on behalf of the
// external scheduler and reports completion before the deadline. A cycle
// that outlives the deadline is cancelled and reported as failure; the
// cancelled poll persists nothing.
func (c *Coordinator) RunBackgroundCycle(ctx context.Context) bool {
	cycleID := uuid.NewString()
	log := c.logger.With("cycle_id", cycleID)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.BackgroundDeadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.runCycle(ctx, "background", false)
	}()

	select {
	case err := <-done:
		if err != nil {
			metrics.BackgroundCyclesTotal.WithLabelValues("error").Inc()
			log.Warn("background cycle failed", "error", err)
			return false
		}
		metrics.BackgroundCyclesTotal.WithLabelValues("ok").Inc()
		log.Info("background cycle completed")
		return true
	case <-ctx.Done():
		// Deadline hit with the cycle still in flight. The context
		// cancellation aborts its network call; report failure so the
		// external scheduler can re-grant later.
		metrics.BackgroundCyclesTotal.WithLabelValues("deadline").Inc()
		log.Warn("background cycle abandoned at deadline")
		return false
	}
}

// runCycle serializes all cycle work. refreshQR selects the full refresh
// path (foreground) versus a bare poll (background).
func (c *Coordinator) runCycle(ctx context.Context, cadence string, refreshQR bool) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug("cycle skipped, another in flight", "cadence", cadence)
		return ErrCycleInFlight
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err := c.breaker.Allow(); err != nil {
		metrics.BreakerSkippedTicks.Inc()
		c.logger.Debug("cycle skipped, circuit open", "cadence", cadence)
		return err
	}

	ctx, span := tracing.Tracer("sched").Start(ctx, "sched.cycle")
	defer span.End()

	err := c.cycle(ctx, cadence, refreshQR)
	if err != nil {
		c.breaker.Failure()
		if c.health.RecordFailure() {
			c.notify(ctx, c.alerts, "Refresh failing", fmt.Sprintf("%d consecutive cycle failures: %v", c.health.ConsecutiveFailures(), err))
		}
		return err
	}

	c.breaker.Success()
	if c.health.RecordSuccess() {
		c.notify(ctx, c.alerts, "Refresh recovered", "cycles are completing again")
	}
	return nil
}

func (c *Coordinator) cycle(ctx context.Context, cadence string, refreshQR bool) error {
	if refreshQR {
		if err := c.machine.Refresh(ctx); err != nil {
			metrics.FeedPollsTotal.WithLabelValues(cadence, "error").Inc()
			return err
		}
	}

	event, err := c.watcher.Poll(ctx)
	if err != nil {
		metrics.FeedPollsTotal.WithLabelValues(cadence, "error").Inc()
		return err
	}
	metrics.FeedPollsTotal.WithLabelValues(cadence, "ok").Inc()

	if event != nil {
		c.notify(ctx, c.feed, notificationTitle, event.Record.ShortDescription())
	}
	return nil
}

func (c *Coordinator) notify(ctx context.Context, n notify.Notifier, title, body string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, title, body); err != nil {
		c.logger.Warn("notification failed", "title", title, "error", err)
	}
}
