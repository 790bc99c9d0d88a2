package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/counter"
)

// DefaultKeyPrefix is the counter key prefix used when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "rate_limiter:"

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxRequests int64
	Window      time.Duration
	KeyPrefix   string
}

// Decision is the outcome of one Check call.
type Decision struct {
	Key        string
	Allowed    bool
	Count      int64
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter enforces a per-subject request quota over a counter store.
type Limiter struct {
	store  counter.Store
	config Config
}

// New creates a [Limiter] backed by store.
func New(store counter.Store, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// Config returns the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Key returns the counter key used for subject.
func (l *Limiter) Key(subject string) string {
	return l.config.KeyPrefix + subject
}

// Check performs one atomic check-and-increment for subject. A rejected
// request returns ErrRateLimited together with the decision; a store failure
// returns ErrCounterUnavailable and a zero decision.
func (l *Limiter) Check(ctx context.Context, subject string) (Decision, error) {
	if l == nil || l.store == nil {
		return Decision{}, fmt.Errorf("%w: limiter not configured", ErrCounterUnavailable)
	}

	key := l.Key(subject)
	c, err := l.store.Increment(ctx, key, l.config.MaxRequests, l.config.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}

	d := Decision{
		Key:       key,
		Allowed:   c.Admitted,
		Count:     c.Count,
		Limit:     l.config.MaxRequests,
		Remaining: c.Remaining(),
	}
	if !c.Admitted {
		d.RetryAfter = c.TTL
		return d, ErrRateLimited
	}

	return d, nil
}
