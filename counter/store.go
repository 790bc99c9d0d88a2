package counter

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure.
	ErrUnavailable = errors.New("counter store unavailable")
	// ErrInvalidQuota is returned for a non-positive limit or window.
	ErrInvalidQuota = errors.New("invalid quota")
)

// Counter is the state of one key after an Increment call.
type Counter struct {
	Key      string
	Count    int64
	Limit    int64
	Admitted bool
	// TTL is the time left until the key expires and the window restarts.
	TTL time.Duration
}

// Remaining returns how many more increments the current window accepts.
func (c Counter) Remaining() int64 {
	if c.Count >= c.Limit {
		return 0
	}
	return c.Limit - c.Count
}

// Store is an atomic check-increment-expire primitive keyed by string.
type Store interface {
	Increment(ctx context.Context, key string, limit int64, window time.Duration) (Counter, error)
}

func validateQuota(limit int64, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return ErrInvalidQuota
	}
	return nil
}
