// Package prometheus exposes goGate pipeline metrics through
// prometheus/client_golang.
//
// [NewCollector] returns a prometheus.Collector that reads
// [goGate.Gateway.MetricsSnapshot] on every scrape. Counter names are
// gogate_*_total; the single histogram is gogate_guard_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     Collector or mount Handler.
//   - Mutate gateway state.
package prometheus
