package goGate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one pipeline counter.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricSessionAccepted counts session tokens that verified.
	MetricSessionAccepted MetricID = iota
	// MetricSessionRejected counts missing, malformed and expired session tokens.
	MetricSessionRejected
	// MetricSessionIssued counts tokens minted by IssueSession.
	MetricSessionIssued
	// MetricAPIKeyAccepted counts API keys that resolved to an identity.
	MetricAPIKeyAccepted
	// MetricAPIKeyRejected counts missing and unknown API keys.
	MetricAPIKeyRejected
	// MetricRoleAccepted counts role checks that passed.
	MetricRoleAccepted
	// MetricRoleDenied counts authenticated identities below the required role.
	MetricRoleDenied
	// MetricRoleUnresolved counts role checks whose fresh lookup missed or failed.
	MetricRoleUnresolved
	// MetricRateLimitAdmitted counts requests inside their quota.
	MetricRateLimitAdmitted
	// MetricRateLimitHit counts requests rejected for exceeding their quota.
	MetricRateLimitHit
	// MetricRateLimitUnavailable counts quota checks that failed closed.
	MetricRateLimitUnavailable
	// MetricIdentityStoreError counts identity store failures other than a miss.
	MetricIdentityStoreError
	// MetricAuditWritten counts persisted audit records.
	MetricAuditWritten
	// MetricAuditFailed counts audit appends that returned an error.
	MetricAuditFailed
	// MetricAuditSkipped counts completed requests that carried no identity.
	MetricAuditSkipped
	// MetricGuardLatency is the latency histogram of store-backed guard calls.
	MetricGuardLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSessionAccepted:      "session_accepted",
	MetricSessionRejected:      "session_rejected",
	MetricSessionIssued:        "session_issued",
	MetricAPIKeyAccepted:       "api_key_accepted",
	MetricAPIKeyRejected:       "api_key_rejected",
	MetricRoleAccepted:         "role_accepted",
	MetricRoleDenied:           "role_denied",
	MetricRoleUnresolved:       "role_unresolved",
	MetricRateLimitAdmitted:    "rate_limit_admitted",
	MetricRateLimitHit:         "rate_limit_hit",
	MetricRateLimitUnavailable: "rate_limit_unavailable",
	MetricIdentityStoreError:   "identity_store_error",
	MetricAuditWritten:         "audit_written",
	MetricAuditFailed:          "audit_failed",
	MetricAuditSkipped:         "audit_skipped",
	MetricGuardLatency:         "guard_latency",
}

// String returns the snake_case name of the metric.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs returns every defined metric in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters and one latency histogram.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id. It is safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricGuardLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricGuardLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGuardLatency].buckets[i])
		}
		s.Histograms[MetricGuardLatency] = buckets
	}

	return s
}

var latencyBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// LatencyBucketBounds returns the inclusive upper bounds of the first seven
// histogram buckets. The eighth bucket is unbounded.
func LatencyBucketBounds() []time.Duration {
	out := make([]time.Duration, len(latencyBounds))
	copy(out, latencyBounds[:])
	return out
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
