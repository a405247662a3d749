package goSSO

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricSSOIssued counts SSO tickets written to the store.
	MetricSSOIssued MetricID = iota
	// MetricSSORedeemed counts successful exactly-once redemptions.
	MetricSSORedeemed
	// MetricSSORejected counts redemptions failed for any caller-side reason.
	MetricSSORejected
	// MetricActionIssued counts action tickets written to the store.
	MetricActionIssued
	// MetricActionEntered counts action tickets escalated to privileged tokens.
	MetricActionEntered
	// MetricActionReplayed counts action-ticket redemptions that lost the race.
	MetricActionReplayed
	// MetricPrivilegedConsumed counts privileged tokens deleted after a gated
	// operation.
	MetricPrivilegedConsumed
	// MetricResetRequested counts reset tokens issued, decoys included.
	MetricResetRequested
	// MetricResetConfirmed counts successful password resets.
	MetricResetConfirmed
	// MetricResetFailed counts reset confirmations rejected for any reason.
	MetricResetFailed
	// MetricResetLockout counts identities that hit the failure ceiling.
	MetricResetLockout
	// MetricVersionBumped counts auth-version increments.
	MetricVersionBumped
	// MetricEventPublished counts envelopes appended to the event stream.
	MetricEventPublished
	// MetricSessionStale counts session validations rejected for a stale
	// auth version.
	MetricSessionStale
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds per-operation atomic counters. All methods are safe for
// concurrent use and no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
