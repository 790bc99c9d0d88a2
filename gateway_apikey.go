package goGate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// AuthenticateAPIKey resolves key to an identity through one identity store
// lookup. An empty key fails without touching the store. Unknown keys and
// store failures both return ErrUnauthenticated; failures are logged and
// counted separately.
func (g *Gateway) AuthenticateAPIKey(ctx context.Context, key string) (Identity, error) {
	if err := g.ready(); err != nil {
		return Identity{}, err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		g.metricInc(MetricAPIKeyRejected)
		return Identity{}, fmt.Errorf("%w: missing api key", ErrUnauthenticated)
	}

	ctx, span := g.startSpan(ctx, "goGate.AuthenticateAPIKey")
	defer span.End()

	sctx, cancel := g.storeContext(ctx)
	defer cancel()

	start := g.clock.Now()
	id, err := g.identity.FindByAPIKey(sctx, key)
	g.observe(start)

	if err != nil {
		g.metricInc(MetricAPIKeyRejected)
		if !errors.Is(err, ErrIdentityNotFound) {
			g.metricInc(MetricIdentityStoreError)
			span.RecordError(err)
			g.logger.Warn("api key lookup failed", zap.Error(err))
		}
		return Identity{}, ErrUnauthenticated
	}

	if id.APIKey == "" {
		id.APIKey = key
	}

	g.metricInc(MetricAPIKeyAccepted)
	return id, nil
}
