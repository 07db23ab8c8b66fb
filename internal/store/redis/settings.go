// Package redis backs the Settings and ContextSync contracts with a redis
// instance, keeping broker state durable across restarts and visible to a
// paired device.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	keySessionToken  = "we:session_token"
	keyHighWaterMark = "we:trans_last_serial"
	keyNotifyEnabled = "we:notify_enabled"
	keySyncedContext = "we:synced_context"
)

type Settings struct {
	client *redis.Client
}

// NewSettings connects to the given redis URL and verifies the connection.
func NewSettings(url string) (*Settings, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Settings{client: client}, nil
}

func (s *Settings) Close() error {
	return s.client.Close()
}

func (s *Settings) SessionToken(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, keySessionToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	return v, nil
}

func (s *Settings) SetSessionToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, keySessionToken, token, 0).Err(); err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	return nil
}

func (s *Settings) HighWaterMark(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, keyHighWaterMark).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get high-water mark: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse high-water mark %q: %w", v, err)
	}
	return n, nil
}

func (s *Settings) SetHighWaterMark(ctx context.Context, serial int64) error {
	if err := s.client.Set(ctx, keyHighWaterMark, strconv.FormatInt(serial, 10), 0).Err(); err != nil {
		return fmt.Errorf("set high-water mark: %w", err)
	}
	return nil
}

func (s *Settings) NotifyEnabled(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, keyNotifyEnabled).Result()
	if err == redis.Nil {
		// An unset toggle means notifications were never turned off.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get notify flag: %w", err)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse notify flag %q: %w", v, err)
	}
	return b, nil
}

func (s *Settings) SetNotifyEnabled(ctx context.Context, enabled bool) error {
	if err := s.client.Set(ctx, keyNotifyEnabled, strconv.FormatBool(enabled), 0).Err(); err != nil {
		return fmt.Errorf("set notify flag: %w", err)
	}
	return nil
}

func (s *Settings) PushContext(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	flat := make(map[string]any, len(values))
	for k, v := range values {
		flat[k] = v
	}
	if err := s.client.HSet(ctx, keySyncedContext, flat).Err(); err != nil {
		return fmt.Errorf("push synced context: %w", err)
	}
	return nil
}

func (s *Settings) LastContext(ctx context.Context) (map[string]string, error) {
	v, err := s.client.HGetAll(ctx, keySyncedContext).Result()
	if err != nil {
		return nil, fmt.Errorf("read synced context: %w", err)
	}
	return v, nil
}
