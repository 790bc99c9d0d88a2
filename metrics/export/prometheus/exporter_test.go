package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGate "github.com/MrEthical07/goGate"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters:   map[goGate.MetricID]uint64{},
			Histograms: map[goGate.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("expected no metrics for disabled source, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricRateLimitHit: 7,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricGuardLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP gogate_audit_dropped_total Audit records the mirror dropped.
# TYPE gogate_audit_dropped_total counter
gogate_audit_dropped_total 2
# HELP gogate_guard_latency_seconds Latency of store-backed guard calls.
# TYPE gogate_guard_latency_seconds histogram
gogate_guard_latency_seconds_bucket{le="0.005"} 1
gogate_guard_latency_seconds_bucket{le="0.01"} 3
gogate_guard_latency_seconds_bucket{le="0.025"} 6
gogate_guard_latency_seconds_bucket{le="0.05"} 10
gogate_guard_latency_seconds_bucket{le="0.1"} 15
gogate_guard_latency_seconds_bucket{le="0.25"} 21
gogate_guard_latency_seconds_bucket{le="0.5"} 28
gogate_guard_latency_seconds_bucket{le="+Inf"} 36
gogate_guard_latency_seconds_sum 0
gogate_guard_latency_seconds_count 36
# HELP gogate_rate_limit_hit_total Requests rejected for exceeding their quota.
# TYPE gogate_rate_limit_hit_total counter
gogate_rate_limit_hit_total 7
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gogate_rate_limit_hit_total",
		"gogate_guard_latency_seconds",
		"gogate_audit_dropped_total",
	)
	if err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestCollectStoreUnavailable(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{goGate.MetricRateLimitUnavailable: 3},
		},
	})

	expected := `
# HELP gogate_rate_limit_store_unavailable_total Quota checks that failed closed.
# TYPE gogate_rate_limit_store_unavailable_total counter
gogate_rate_limit_store_unavailable_total 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "gogate_rate_limit_store_unavailable_total"); err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestCollectorLintClean(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{goGate.MetricAuditWritten: 1},
		},
	})
	problems, err := testutil.CollectAndLint(c)
	if err != nil {
		t.Fatalf("lint failed: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("lint problems: %v", problems)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters:   map[goGate.MetricID]uint64{goGate.MetricSessionAccepted: 1},
			Histograms: map[goGate.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "gogate_session_accepted_total 1") {
		t.Fatalf("expected counter in body, got:\n%s", rec.Body.String())
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricSessionAccepted:   1000,
				goGate.MetricSessionRejected:   40,
				goGate.MetricAPIKeyAccepted:    800,
				goGate.MetricRateLimitHit:      10,
				goGate.MetricRateLimitAdmitted: 800,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricGuardLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(c)
	}
}
