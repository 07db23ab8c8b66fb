package sched

import (
	"sync"
	"time"
)

// HealthStatus is the coordinator's view of the remote relationship.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"

	// DefaultUnhealthyThreshold is the number of consecutive failed cycles
	// before the coordinator is considered unhealthy.
	DefaultUnhealthyThreshold = 3
)

// Health tracks consecutive cycle failures so the unhealthy alert fires
// once per outage instead of once per tick.
type Health struct {
	mu                  sync.RWMutex
	status              HealthStatus
	consecutiveFailures int
	lastSuccessAt       *time.Time
	lastFailureAt       *time.Time
	unhealthyThreshold  int
}

func NewHealth() *Health {
	return &Health{
		status:             HealthStatusUnknown,
		unhealthyThreshold: DefaultUnhealthyThreshold,
	}
}

// RecordSuccess records a completed cycle and returns true when it
// represents a recovery from an unhealthy state.
func (h *Health) RecordSuccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	wasUnhealthy := h.status == HealthStatusUnhealthy
	h.consecutiveFailures = 0
	h.lastSuccessAt = &now
	h.status = HealthStatusHealthy
	return wasUnhealthy
}

// RecordFailure records a failed cycle and returns true when this failure
// crossed the unhealthy threshold.
func (h *Health) RecordFailure() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	h.consecutiveFailures++
	h.lastFailureAt = &now
	if h.status != HealthStatusUnhealthy && h.consecutiveFailures >= h.unhealthyThreshold {
		h.status = HealthStatusUnhealthy
		return true
	}
	return false
}

// Status returns the current health status.
func (h *Health) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// ConsecutiveFailures returns the current failure streak.
func (h *Health) ConsecutiveFailures() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.consecutiveFailures
}
