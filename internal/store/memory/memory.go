// Package memory provides an in-process Settings/ContextSync backend for
// tests and redis-less runs. State does not survive restarts.
package memory

import (
	"context"
	"sync"
)

type Settings struct {
	mu            sync.RWMutex
	sessionToken  string
	highWaterMark int64
	notifyEnabled bool
	syncedContext map[string]string
}

func NewSettings() *Settings {
	// The notify toggle defaults to on; false means the user turned it off.
	return &Settings{
		notifyEnabled: true,
		syncedContext: make(map[string]string),
	}
}

func (s *Settings) SessionToken(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken, nil
}

func (s *Settings) SetSessionToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionToken = token
	return nil
}

func (s *Settings) HighWaterMark(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highWaterMark, nil
}

func (s *Settings) SetHighWaterMark(_ context.Context, serial int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highWaterMark = serial
	return nil
}

func (s *Settings) NotifyEnabled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifyEnabled, nil
}

func (s *Settings) SetNotifyEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyEnabled = enabled
	return nil
}

func (s *Settings) PushContext(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncedContext = make(map[string]string, len(values))
	for k, v := range values {
		s.syncedContext[k] = v
	}
	return nil
}

func (s *Settings) LastContext(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.syncedContext))
	for k, v := range s.syncedContext {
		out[k] = v
	}
	return out, nil
}
