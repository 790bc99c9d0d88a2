package goGate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Authorize re-reads the role of id from the identity store and checks it
// against required. The role carried by id is ignored, so a role change takes
// effect on the next request.
//
// A vanished identity or a store failure returns ErrUnauthenticated; an
// identity below required returns ErrUnauthorized. On success the refreshed
// identity is returned.
func (g *Gateway) Authorize(ctx context.Context, id Identity, required Role) (Identity, error) {
	if err := g.ready(); err != nil {
		return Identity{}, err
	}
	if !required.Valid() {
		return Identity{}, fmt.Errorf("%w: invalid required role %d", ErrInternal, required)
	}
	if id.ID <= 0 {
		g.metricInc(MetricRoleUnresolved)
		return Identity{}, fmt.Errorf("%w: no identity", ErrUnauthenticated)
	}

	ctx, span := g.startSpan(ctx, "goGate.Authorize")
	defer span.End()

	sctx, cancel := g.storeContext(ctx)
	defer cancel()

	start := g.clock.Now()
	fresh, err := g.identity.FindByID(sctx, id.ID)
	g.observe(start)

	if err != nil {
		g.metricInc(MetricRoleUnresolved)
		if !errors.Is(err, ErrIdentityNotFound) {
			g.metricInc(MetricIdentityStoreError)
			span.RecordError(err)
			g.logger.Warn("role lookup failed", zap.Int64("user_id", id.ID), zap.Error(err))
		}
		return Identity{}, ErrUnauthenticated
	}

	if fresh.APIKey == "" {
		fresh.APIKey = id.APIKey
	}

	if !fresh.Role.Satisfies(required) {
		g.metricInc(MetricRoleDenied)
		return fresh, ErrUnauthorized
	}

	g.metricInc(MetricRoleAccepted)
	return fresh, nil
}
