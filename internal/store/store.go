// Package store defines the persistence contracts for process-wide state:
// the session token, the transaction high-water mark, and the notification
// flag. Writers are serialized by the scheduling coordinator; backends only
// need atomic single-key semantics.
package store

import "context"

// Settings is durable key/value persistence for broker state that must
// survive restarts.
type Settings interface {
	SessionToken(ctx context.Context) (string, error)
	SetSessionToken(ctx context.Context, token string) error

	// HighWaterMark is the highest transaction serial already observed and
	// notified. Monotonically non-decreasing; 0 means nothing seen yet.
	HighWaterMark(ctx context.Context) (int64, error)
	SetHighWaterMark(ctx context.Context, serial int64) error

	NotifyEnabled(ctx context.Context) (bool, error)
	SetNotifyEnabled(ctx context.Context, enabled bool) error
}

// ContextSync is the paired-device contract: the broker pushes its session
// context for a companion device and can read back the last synced one.
// Transport details live behind the implementation.
type ContextSync interface {
	PushContext(ctx context.Context, values map[string]string) error
	LastContext(ctx context.Context) (map[string]string, error)
}
