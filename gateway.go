package goGate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGate/counter"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/MrEthical07/goGate"

// Gateway holds the shared dependencies of every guard: the identity store,
// the counter store, the token codec and the audit mirror.
//
// Gateway instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Gateway struct {
	config   Config
	identity IdentityStore
	counters counter.Store
	limiter  *rate.Limiter
	codec    TokenCodec
	audit    *auditMirror
	metrics  *Metrics
	logger   *zap.Logger
	clock    clock.Clock
	tracer   trace.Tracer
	closed   atomic.Bool
}

// Close drains the audit mirror. Guards invoked after Close fail with
// ErrGatewayNotReady.
func (g *Gateway) Close() {
	if g == nil || !g.closed.CompareAndSwap(false, true) {
		return
	}
	if g.audit != nil {
		g.audit.Close()
	}
	_ = g.logger.Sync()
}

// Config returns a copy of the configuration the gateway was built with.
func (g *Gateway) Config() Config {
	if g == nil {
		return Config{}
	}
	return cloneConfig(g.config)
}

// Logger returns the gateway logger. It never returns nil.
func (g *Gateway) Logger() *zap.Logger {
	if g == nil || g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}

// Now returns the gateway clock time.
func (g *Gateway) Now() time.Time {
	if g == nil || g.clock == nil {
		return time.Now()
	}
	return g.clock.Now()
}

// Metrics returns the live counter set, for exporters.
func (g *Gateway) Metrics() *Metrics {
	if g == nil {
		return nil
	}
	return g.metrics
}

// MetricsSnapshot copies the current counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// AuditDropped returns how many records the mirror discarded because its
// buffer was full.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

func (g *Gateway) ready() error {
	if g == nil || g.closed.Load() {
		return ErrGatewayNotReady
	}
	return nil
}

func (g *Gateway) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

// storeContext detaches store calls from client cancellation and bounds them
// by Store.Timeout, so a disconnecting client cannot abort a counter update
// halfway.
func (g *Gateway) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), g.config.Store.Timeout)
}

// observe records store-call latency when histograms are enabled.
func (g *Gateway) observe(start time.Time) {
	if !g.metrics.LatencyEnabled() {
		return
	}
	g.metrics.Observe(MetricGuardLatency, g.clock.Since(start))
}

func (g *Gateway) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return g.tracer.Start(ctx, name)
}

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
