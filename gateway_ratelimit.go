package goGate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/internal/rate"
	"go.uber.org/zap"
)

// Quota describes the counter state of an admitted request.
type Quota struct {
	Limit     int64
	Count     int64
	Remaining int64
	Window    time.Duration
}

// Admit performs one atomic check-and-increment for subject. Requests beyond
// the quota return a *RateLimitError matching ErrRateLimited. When the counter
// store cannot answer, Admit fails closed with ErrServiceUnavailable.
func (g *Gateway) Admit(ctx context.Context, subject string) (Quota, error) {
	if err := g.ready(); err != nil {
		return Quota{}, err
	}

	ctx, span := g.startSpan(ctx, "goGate.Admit")
	defer span.End()

	sctx, cancel := g.storeContext(ctx)
	defer cancel()

	start := g.clock.Now()
	d, err := g.limiter.Check(sctx, subject)
	g.observe(start)

	window := g.config.RateLimit.Window

	switch {
	case err == nil:
		g.metricInc(MetricRateLimitAdmitted)
		return Quota{
			Limit:     d.Limit,
			Count:     d.Count,
			Remaining: d.Remaining,
			Window:    window,
		}, nil
	case errors.Is(err, rate.ErrRateLimited):
		g.metricInc(MetricRateLimitHit)
		return Quota{}, &RateLimitError{
			Address:    subject,
			Limit:      d.Limit,
			Count:      d.Count,
			Window:     window,
			RetryAfter: d.RetryAfter,
		}
	default:
		g.metricInc(MetricRateLimitUnavailable)
		span.RecordError(err)
		g.logger.Error("counter store unavailable", zap.String("key", g.limiter.Key(subject)), zap.Error(err))
		return Quota{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}
