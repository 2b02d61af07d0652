package authcore

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint8

const (
	// MetricSessionIssued counts successful session issuances.
	MetricSessionIssued MetricID = iota
	// MetricSessionVerified counts successful session verifications.
	MetricSessionVerified
	// MetricSessionRevoked counts explicit revocations.
	MetricSessionRevoked
	// MetricSessionRenewed counts successful renewals.
	MetricSessionRenewed
	// MetricTokenExpired counts verifications rejected on expiry.
	MetricTokenExpired
	// MetricTokenInvalid counts verifications rejected on signature or shape.
	MetricTokenInvalid
	// MetricResetIssued counts password-reset tokens minted.
	MetricResetIssued
	// MetricResetConsumed counts password-reset tokens consumed.
	MetricResetConsumed
	// MetricVerificationIssued counts email-verification tokens minted.
	MetricVerificationIssued
	// MetricVerificationConsumed counts email-verification tokens consumed.
	MetricVerificationConsumed
	// MetricEmailEnqueued counts jobs placed on the dispatch queue.
	MetricEmailEnqueued
	// MetricEmailCompleted counts delivered jobs.
	MetricEmailCompleted
	// MetricEmailRetried counts rescheduled delivery attempts.
	MetricEmailRetried
	// MetricEmailExhausted counts jobs whose attempt budget was spent.
	MetricEmailExhausted

	metricIDCount
)

// Metrics holds lock-free counters. When disabled, all operations are
// no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	snapshot := make(map[MetricID]uint64, metricIDCount)
	if m == nil || !m.enabled {
		return snapshot
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot[id] = m.counters[id].Load()
	}
	return snapshot
}
