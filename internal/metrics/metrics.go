package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms for the broker daemon, partitioned by cadence
// where a cycle can be driven from more than one place.

var (
	// Authenticated client
	ClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total remote API requests by outcome",
	}, []string{"method", "path", "outcome"})

	// QR lifecycle
	QRRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "qr",
		Name:      "refresh_total",
		Help:      "Total QR refresh cycles by result",
	}, []string{"result"})

	QRRedemptionChecks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "qr",
		Name:      "redemption_checks_total",
		Help:      "Total redemption status checks while a code was active",
	})

	QRSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "qr",
		Name:      "settled_total",
		Help:      "Total QR codes detected as redeemed",
	})

	QRExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "qr",
		Name:      "expired_total",
		Help:      "Total QR codes that reached the end of their validity window",
	})

	QRRefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "we",
		Subsystem: "qr",
		Name:      "refresh_duration_seconds",
		Help:      "QR refresh cycle duration (re-auth, balance, issuance)",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// Transaction feed watcher
	FeedPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "feed",
		Name:      "polls_total",
		Help:      "Total feed poll cycles by result",
	}, []string{"cadence", "result"})

	FeedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "feed",
		Name:      "events_total",
		Help:      "Total new-transaction events emitted",
	})

	FeedHighWaterMark = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "we",
		Subsystem: "feed",
		Name:      "high_water_mark",
		Help:      "Highest transaction serial observed and persisted",
	})

	// Scheduling coordinator
	BackgroundCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "sched",
		Name:      "background_cycles_total",
		Help:      "Total externally-invoked background cycles by result",
	}, []string{"result"})

	ForegroundTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "sched",
		Name:      "foreground_ticks_total",
		Help:      "Total foreground timer fires",
	})

	BreakerSkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "sched",
		Name:      "breaker_skipped_ticks_total",
		Help:      "Ticks skipped because the remote circuit breaker was open",
	})

	// Notifications
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "we",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Total notifications dispatched by channel",
	}, []string{"channel"})
)
