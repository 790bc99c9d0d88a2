package otel

import (
	"context"
	"errors"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names. Guard decisions share one counter split by the guard and
// outcome attributes.
const (
	DecisionsName      = "gogate.guard.decisions"
	LatencyBucketName  = "gogate.guard.latency.bucket"
	LatencyCountName   = "gogate.guard.latency.count"
	AuditDroppedName   = "gogate.audit.dropped"
	RejectionRatioName = "gogate.rate_limit.rejection_ratio"
)

type metricsSource interface {
	MetricsSnapshot() goGate.MetricsSnapshot
	AuditDropped() uint64
}

type decision struct {
	id    goGate.MetricID
	attrs metric.ObserveOption
}

type latency struct {
	id      goGate.MetricID
	buckets [8]metric.ObserveOption
	attrs   metric.ObserveOption
}

// OTelExporter mirrors a gateway metrics snapshot into OpenTelemetry
// observable instruments on each collection cycle.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	decisions      metric.Int64ObservableCounter
	latencyBuckets metric.Int64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
	auditDropped   metric.Int64ObservableCounter
	rejectionRatio metric.Float64ObservableGauge

	decisionSets []decision
	latencySets  []latency
}

// NewOTelExporter registers the gateway instruments on meter. Close
// unregisters them.
func NewOTelExporter(meter metric.Meter, gw *goGate.Gateway) (*OTelExporter, error) {
	if gw == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, gw)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var err error

	if e.decisions, err = meter.Int64ObservableCounter(DecisionsName,
		metric.WithDescription("Guard decisions by guard and outcome.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", DecisionsName, err)
	}
	if e.latencyBuckets, err = meter.Int64ObservableGauge(LatencyBucketName,
		metric.WithDescription("Cumulative guard latency bucket counts by upper bound."),
		metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyBucketName, err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(LatencyCountName,
		metric.WithDescription("Store-backed guard calls measured."),
		metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyCountName, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}
	if e.rejectionRatio, err = meter.Float64ObservableGauge(RejectionRatioName,
		metric.WithDescription("Share of quota checks rejected since start."),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create %s: %w", RejectionRatioName, err)
	}

	for _, def := range internaldefs.CounterDefs {
		e.decisionSets = append(e.decisionSets, decision{
			id: def.ID,
			attrs: metric.WithAttributeSet(attribute.NewSet(
				attribute.String("guard", def.Guard),
				attribute.String("outcome", def.Outcome),
			)),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		l := latency{
			id:    def.ID,
			attrs: metric.WithAttributes(attribute.String("histogram", def.Name)),
		}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			l.buckets[i] = metric.WithAttributeSet(attribute.NewSet(
				attribute.String("histogram", def.Name),
				attribute.String("le", suffix),
			))
		}
		e.latencySets = append(e.latencySets, l)
	}

	e.registration, err = meter.RegisterCallback(e.observe,
		e.decisions, e.latencyBuckets, e.latencyCount, e.auditDropped, e.rejectionRatio)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return nil
	}

	for _, d := range e.decisionSets {
		o.ObserveInt64(e.decisions, int64(snapshot.Counters[d.id]), d.attrs)
	}
	for _, l := range e.latencySets {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i := range cumulative {
			o.ObserveInt64(e.latencyBuckets, int64(cumulative[i]), l.buckets[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]), l.attrs)
	}

	o.ObserveFloat64(e.rejectionRatio, rejectionRatio(snapshot))
	return nil
}

// rejectionRatio is zero until the first quota check.
func rejectionRatio(s goGate.MetricsSnapshot) float64 {
	hit := s.Counters[goGate.MetricRateLimitHit]
	total := hit + s.Counters[goGate.MetricRateLimitAdmitted] + s.Counters[goGate.MetricRateLimitUnavailable]
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
