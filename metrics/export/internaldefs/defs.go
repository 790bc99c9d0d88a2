package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef binds a pipeline counter to its exported name and to the guard
// decision it records.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID      goGate.MetricID
	Name    string
	Help    string
	Guard   string
	Outcome string
}

// HistogramDef binds a latency histogram to its exported name.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricSessionAccepted, Name: "gogate_session_accepted_total", Help: "Session tokens that verified.", Guard: "session", Outcome: "accepted"},
	{ID: goGate.MetricSessionRejected, Name: "gogate_session_rejected_total", Help: "Missing, malformed or expired session tokens.", Guard: "session", Outcome: "rejected"},
	{ID: goGate.MetricSessionIssued, Name: "gogate_session_issued_total", Help: "Session tokens issued.", Guard: "session", Outcome: "issued"},
	{ID: goGate.MetricAPIKeyAccepted, Name: "gogate_api_key_accepted_total", Help: "API keys that resolved to an identity.", Guard: "api_key", Outcome: "accepted"},
	{ID: goGate.MetricAPIKeyRejected, Name: "gogate_api_key_rejected_total", Help: "Missing or unknown API keys.", Guard: "api_key", Outcome: "rejected"},
	{ID: goGate.MetricRoleAccepted, Name: "gogate_role_accepted_total", Help: "Role checks that passed.", Guard: "role", Outcome: "accepted"},
	{ID: goGate.MetricRoleDenied, Name: "gogate_role_denied_total", Help: "Identities below the required role.", Guard: "role", Outcome: "denied"},
	{ID: goGate.MetricRoleUnresolved, Name: "gogate_role_unresolved_total", Help: "Role checks whose identity lookup missed or failed.", Guard: "role", Outcome: "unresolved"},
	{ID: goGate.MetricRateLimitAdmitted, Name: "gogate_rate_limit_admitted_total", Help: "Requests admitted inside their quota.", Guard: "rate_limit", Outcome: "admitted"},
	{ID: goGate.MetricRateLimitHit, Name: "gogate_rate_limit_hit_total", Help: "Requests rejected for exceeding their quota.", Guard: "rate_limit", Outcome: "rejected"},
	{ID: goGate.MetricRateLimitUnavailable, Name: "gogate_rate_limit_store_unavailable_total", Help: "Quota checks that failed closed.", Guard: "rate_limit", Outcome: "unavailable"},
	{ID: goGate.MetricIdentityStoreError, Name: "gogate_identity_store_error_total", Help: "Identity store failures other than a miss.", Guard: "identity_store", Outcome: "error"},
	{ID: goGate.MetricAuditWritten, Name: "gogate_audit_written_total", Help: "Persisted audit records.", Guard: "audit", Outcome: "written"},
	{ID: goGate.MetricAuditFailed, Name: "gogate_audit_failed_total", Help: "Audit appends that failed.", Guard: "audit", Outcome: "failed"},
	{ID: goGate.MetricAuditSkipped, Name: "gogate_audit_skipped_total", Help: "Completed requests without an identity.", Guard: "audit", Outcome: "skipped"},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricGuardLatency, Name: "gogate_guard_latency_seconds", Help: "Latency of store-backed guard calls."},
}

// AuditDroppedName and AuditDroppedHelp describe the mirror backpressure counter.
const (
	AuditDroppedName = "gogate_audit_dropped_total"
	AuditDroppedHelp = "Audit records the mirror dropped."
)

// HistogramBoundSuffix names the eight buckets for exporters without native
// histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	bounds := goGate.LatencyBucketBounds()
	out := make([]float64, len(bounds))
	for i, d := range bounds {
		out[i] = d.Seconds()
	}
	return out
}

// NormalizeBuckets pads or truncates raw to the eight histogram buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
