// Package otel exports goGate pipeline metrics as OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one decisions counter with guard and outcome
// attributes, the guard latency buckets keyed by their upper bound, the audit
// mirror drop count and the rate limit rejection ratio. One callback reads
// [goGate.Gateway.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate gateway state.
package otel
