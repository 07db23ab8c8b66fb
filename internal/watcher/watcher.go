// Package watcher polls the transaction feed and surfaces newly posted
// transactions exactly once, tracked through a durable high-water mark of
// the highest serial already seen.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LakeLink/WE/internal/broker"
	"github.com/LakeLink/WE/internal/domain/model"
	"github.com/LakeLink/WE/internal/metrics"
	"github.com/LakeLink/WE/internal/store"
	"github.com/LakeLink/WE/internal/tracing"
)

// Event reports that new transactions were observed. It carries only the
// record with the highest new serial: when several transactions land in one
// poll window the rest are consumed into the mark update without their own
// events. That mirrors the upstream "just tell me the latest" behavior and
// is deliberate, not a dedup bug.
type Event struct {
	Record       model.TransactionRecord
	Serial       int64
	PreviousMark int64
	// NewerCount is how many records in the batch were above the previous
	// mark, the surfaced one included.
	NewerCount int
}

// Archive receives every record that cleared the previous mark. Optional;
// failures are logged and never affect poll semantics.
type Archive interface {
	Save(ctx context.Context, records []model.TransactionRecord) error
}

// Watcher runs strictly sequential poll cycles against one feed. The
// scheduling coordinator serializes callers; the watcher itself holds no
// locks.
type Watcher struct {
	newBroker broker.Factory
	settings  store.Settings
	archive   Archive
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Watcher)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithArchive attaches a transaction archive.
func WithArchive(a Archive) Option {
	return func(w *Watcher) { w.archive = a }
}

func New(newBroker broker.Factory, settings store.Settings, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		newBroker: newBroker,
		settings:  settings,
		now:       time.Now,
		logger:    logger.With("component", "feed_watcher"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Poll fetches today's transaction list and compares it against the
// persisted high-water mark. When qualifying records exist the mark is
// advanced to the highest new serial and exactly one event is returned; on
// any error the mark is left untouched and no event is emitted. Polling
// twice with no new remote data is a no-op both times.
func (w *Watcher) Poll(ctx context.Context) (*Event, error) {
	ctx, span := tracing.Tracer("watcher").Start(ctx, "watcher.poll")
	defer span.End()

	mark, err := w.settings.HighWaterMark(ctx)
	if err != nil {
		return nil, fmt.Errorf("load high-water mark: %w", err)
	}

	api, err := w.newBroker(ctx)
	if err != nil {
		return nil, err
	}

	records, err := api.Transactions(ctx, w.now())
	if err != nil {
		return nil, err
	}

	var (
		latest    *model.TransactionRecord
		maxSerial = mark
		newer     []model.TransactionRecord
	)
	for i := range records {
		serial, err := records[i].Serial()
		if err != nil {
			// The remote occasionally pads the feed with non-numeric rows;
			// they cannot participate in the mark.
			w.logger.Warn("skipping record with bad serial", "serialno", records[i].SerialNo, "error", err)
			continue
		}
		if serial <= mark {
			continue
		}
		newer = append(newer, records[i])
		if serial > maxSerial {
			maxSerial = serial
			latest = &records[i]
		}
	}

	if latest == nil {
		w.logger.Debug("no new transactions", "mark", mark, "fetched", len(records))
		return nil, nil
	}

	// Persist the mark before surfacing the event so a crash after this
	// point drops a notification instead of duplicating one.
	if err := w.settings.SetHighWaterMark(ctx, maxSerial); err != nil {
		return nil, fmt.Errorf("advance high-water mark: %w", err)
	}
	metrics.FeedHighWaterMark.Set(float64(maxSerial))

	if w.archive != nil {
		if err := w.archive.Save(ctx, newer); err != nil {
			w.logger.Warn("archive write failed", "count", len(newer), "error", err)
		}
	}

	metrics.FeedEventsTotal.Inc()
	w.logger.Info("new transaction observed",
		"serial", maxSerial,
		"previous_mark", mark,
		"newer_in_batch", len(newer),
	)
	return &Event{
		Record:       *latest,
		Serial:       maxSerial,
		PreviousMark: mark,
		NewerCount:   len(newer),
	}, nil
}
