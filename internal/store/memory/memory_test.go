package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Defaults(t *testing.T) {
	s := NewSettings()
	ctx := context.Background()

	token, err := s.SessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	mark, err := s.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Zero(t, mark)

	// Notifications default to on so a fresh install delivers without any
	// toggle having been touched.
	on, err := s.NotifyEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSettings_RoundTrip(t *testing.T) {
	s := NewSettings()
	ctx := context.Background()

	require.NoError(t, s.SetSessionToken(ctx, "tok-1"))
	require.NoError(t, s.SetHighWaterMark(ctx, 103))
	require.NoError(t, s.SetNotifyEnabled(ctx, false))

	token, err := s.SessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	mark, err := s.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(103), mark)

	on, err := s.NotifyEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestContextSync_PushReplacesWholeContext(t *testing.T) {
	s := NewSettings()
	ctx := context.Background()

	require.NoError(t, s.PushContext(ctx, map[string]string{"sessionID": "tok-1", "extra": "x"}))
	require.NoError(t, s.PushContext(ctx, map[string]string{"sessionID": "tok-2"}))

	got, err := s.LastContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sessionID": "tok-2"}, got)
}

func TestContextSync_ReturnsCopy(t *testing.T) {
	s := NewSettings()
	ctx := context.Background()

	require.NoError(t, s.PushContext(ctx, map[string]string{"sessionID": "tok-1"}))

	got, err := s.LastContext(ctx)
	require.NoError(t, err)
	got["sessionID"] = "mutated"

	again, err := s.LastContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", again["sessionID"])
}
