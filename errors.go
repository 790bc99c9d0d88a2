package goGate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthenticated is returned when a request carries no usable credential.
	// Missing, malformed, expired and unknown credentials all collapse to it.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized is returned when an authenticated identity lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when a request exceeds its traffic quota.
	ErrRateLimited = errors.New("rate limited")
	// ErrServiceUnavailable is returned when the counter store cannot make a quota decision.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrInternal is returned for faults that are neither the caller's nor a dependency outage.
	ErrInternal = errors.New("internal error")
	// ErrIdentityNotFound is returned by identity stores when a lookup has no match.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrAuditSkipped is returned by RecordAudit when the request carries no identity.
	ErrAuditSkipped = errors.New("audit record skipped")
	// ErrGatewayNotReady is returned when a nil or closed Gateway is used.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)

// RateLimitError carries the quota metadata of a rejected request.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	Address    string
	Limit      int64
	Count      int64
	Window     time.Duration
	RetryAfter time.Duration
}

// Error renders the message clients receive with a 429 response.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded for IP: %s - %d requests in %d seconds",
		e.Address, e.Limit, int64(e.Window/time.Second))
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
