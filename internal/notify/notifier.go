// Package notify delivers one-shot user-visible alerts: new-transaction
// events, settlement confirmations, and broker error surfacing.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LakeLink/WE/internal/metrics"
)

// Notifier accepts a (title, body) pair for a single alert.
type Notifier interface {
	Send(ctx context.Context, title, body string) error
}

// Multi fans out to several channels and suppresses repeats of the same
// title within the cooldown window.
type Multi struct {
	notifiers []Notifier
	cooldown  time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMulti(cooldown time.Duration, logger *slog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		cooldown:  cooldown,
		logger:    logger.With("component", "notifier"),
		lastSent:  make(map[string]time.Time),
	}
}

func (m *Multi) Send(ctx context.Context, title, body string) error {
	m.mu.Lock()
	if last, ok := m.lastSent[title]; ok && time.Since(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("notification suppressed by cooldown", "title", title)
		return nil
	}
	m.lastSent[title] = time.Now()
	m.mu.Unlock()

	var firstErr error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, title, body); err != nil {
			m.logger.Warn("notification send failed",
				"channel", channelName(n),
				"title", title,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			metrics.NotificationsSentTotal.WithLabelValues(channelName(n)).Inc()
		}
	}
	return firstErr
}

func channelName(n Notifier) string {
	switch n.(type) {
	case *Webhook:
		return "webhook"
	case *Log:
		return "log"
	default:
		return "unknown"
	}
}

// Webhook posts alerts as JSON to a configured HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) Send(ctx context.Context, title, body string) error {
	payload := map[string]string{
		"id":    uuid.NewString(),
		"title": title,
		"body":  body,
		"time":  time.Now().UTC().Format(time.RFC3339),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Log writes alerts to the structured log. Default channel when no webhook
// is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notify_log")}
}

func (l *Log) Send(_ context.Context, title, body string) error {
	l.logger.Info("notification", "title", title, "body", body)
	return nil
}

// Noop drops everything. Used when notifications are disabled.
type Noop struct{}

func (Noop) Send(context.Context, string, string) error { return nil }
