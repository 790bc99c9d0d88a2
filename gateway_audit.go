package goGate

import (
	"context"

	"go.uber.org/zap"
)

// RecordAudit appends one usage record for a completed request. It is best
// effort: a store failure is logged and counted and RecordAudit returns nil,
// so the response already sent is never affected. A request without an
// identity is skipped with ErrAuditSkipped.
//
// After a successful append the record is mirrored to the configured
// AuditSink when Config.Audit.Enabled is set.
func (g *Gateway) RecordAudit(ctx context.Context, rc *RequestContext, status int) error {
	if err := g.ready(); err != nil {
		return err
	}
	if rc == nil || rc.Identity == nil {
		g.metricInc(MetricAuditSkipped)
		if rc != nil {
			g.logger.Debug("audit skipped for anonymous request",
				zap.String("path", rc.Path),
				zap.String("request_id", rc.RequestID))
		}
		return ErrAuditSkipped
	}

	ts := rc.ReceivedAt
	if ts.IsZero() {
		ts = g.clock.Now()
	}

	apiKey := rc.APIKey
	if apiKey == "" {
		apiKey = rc.Identity.APIKey
	}

	rec := AuditRecord{
		IdentityID:    rc.Identity.ID,
		APIKey:        apiKey,
		Path:          rc.Path,
		Method:        rc.Method,
		Timestamp:     ts.UTC(),
		SourceAddress: rc.SourceAddress,
		StatusCode:    status,
	}

	ctx, span := g.startSpan(ctx, "goGate.RecordAudit")
	defer span.End()

	sctx, cancel := g.storeContext(ctx)
	defer cancel()

	if err := g.identity.AppendAuditRecord(sctx, rec); err != nil {
		g.metricInc(MetricAuditFailed)
		span.RecordError(err)
		g.logger.Warn("audit append failed",
			zap.Int64("user_id", rec.IdentityID),
			zap.String("path", rec.Path),
			zap.String("request_id", rc.RequestID),
			zap.Error(err))
		return nil
	}

	g.metricInc(MetricAuditWritten)
	g.audit.Emit(sctx, rec)
	return nil
}
