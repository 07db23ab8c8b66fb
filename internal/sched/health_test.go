package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealth_StartsUnknown(t *testing.T) {
	h := NewHealth()
	assert.Equal(t, HealthStatusUnknown, h.Status())
	assert.Zero(t, h.ConsecutiveFailures())
}

func TestHealth_UnhealthyAtThreshold(t *testing.T) {
	h := NewHealth()

	assert.False(t, h.RecordFailure())
	assert.False(t, h.RecordFailure())
	assert.Equal(t, HealthStatusUnknown, h.Status())

	// The third consecutive failure crosses the threshold exactly once.
	assert.True(t, h.RecordFailure())
	assert.Equal(t, HealthStatusUnhealthy, h.Status())
	assert.False(t, h.RecordFailure())
	assert.Equal(t, 4, h.ConsecutiveFailures())
}

func TestHealth_SuccessResetsStreak(t *testing.T) {
	h := NewHealth()
	h.RecordFailure()
	h.RecordFailure()

	assert.False(t, h.RecordSuccess(), "not a recovery, was never unhealthy")
	assert.Equal(t, HealthStatusHealthy, h.Status())
	assert.Zero(t, h.ConsecutiveFailures())

	// The streak starts over after a success.
	assert.False(t, h.RecordFailure())
	assert.False(t, h.RecordFailure())
	assert.True(t, h.RecordFailure())
}

func TestHealth_RecoveryReportedOnce(t *testing.T) {
	h := NewHealth()
	for i := 0; i < DefaultUnhealthyThreshold; i++ {
		h.RecordFailure()
	}
	assert.Equal(t, HealthStatusUnhealthy, h.Status())

	assert.True(t, h.RecordSuccess())
	assert.False(t, h.RecordSuccess())
	assert.Equal(t, HealthStatusHealthy, h.Status())
}
