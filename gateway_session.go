package goGate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const bearerPrefix = "bearer "

// VerifySession authenticates a session token and returns the identity it
// attests. The returned Role is RoleUnresolved: tokens carry a subject only,
// and RoleGuard re-reads the role from the identity store.
//
// A leading "Bearer " scheme is tolerated. Missing, malformed, tampered and
// expired tokens all return ErrUnauthenticated with no further detail.
// VerifySession makes no store calls.
func (g *Gateway) VerifySession(ctx context.Context, token string) (Identity, error) {
	if err := g.ready(); err != nil {
		return Identity{}, err
	}

	_, span := g.startSpan(ctx, "goGate.VerifySession")
	defer span.End()

	token = stripBearer(token)
	if token == "" {
		g.metricInc(MetricSessionRejected)
		return Identity{}, fmt.Errorf("%w: missing session token", ErrUnauthenticated)
	}

	subject, err := g.codec.Verify(token)
	if err != nil {
		g.metricInc(MetricSessionRejected)
		g.logger.Debug("session token rejected")
		return Identity{}, ErrUnauthenticated
	}

	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		g.metricInc(MetricSessionRejected)
		return Identity{}, ErrUnauthenticated
	}

	g.metricInc(MetricSessionAccepted)
	return Identity{ID: id, Role: RoleUnresolved}, nil
}

// IssueSession mints a session token for identity id with the configured TTL.
// It backs the login route.
func (g *Gateway) IssueSession(id int64) (string, error) {
	return g.IssueSessionTTL(id, 0)
}

// IssueSessionTTL is IssueSession with an explicit lifetime. A non-positive
// ttl uses Config.Token.TTL.
func (g *Gateway) IssueSessionTTL(id int64, ttl time.Duration) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	if id <= 0 {
		return "", fmt.Errorf("%w: invalid identity id %d", ErrInternal, id)
	}
	if ttl <= 0 {
		ttl = g.config.Token.TTL
	}

	token, err := g.codec.Issue(strconv.FormatInt(id, 10), ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInternal, err)
	}

	g.metricInc(MetricSessionIssued)
	return token, nil
}

func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	return token
}
