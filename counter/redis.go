package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript returns {admitted, count, pttl}. GET, INCR and PEXPIRE run
// inside one script so concurrent callers on the same key serialize in Redis.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {0, current, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return {1, current, tonumber(ARGV[2])}
`)

// Redis is a Store backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a Redis counter store. The client is shared and not closed
// by the store.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Increment runs the check-increment-expire step for key.
func (s *Redis) Increment(ctx context.Context, key string, limit int64, window time.Duration) (Counter, error) {
	if err := validateQuota(limit, window); err != nil {
		return Counter{}, err
	}
	if s == nil || s.client == nil {
		return Counter{}, fmt.Errorf("%w: redis client not configured", ErrUnavailable)
	}

	vals, err := incrementScript.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) != 3 {
		return Counter{}, fmt.Errorf("%w: unexpected script reply length %d", ErrUnavailable, len(vals))
	}

	ttl := time.Duration(vals[2]) * time.Millisecond
	if vals[2] < 0 {
		ttl = window
	}

	return Counter{
		Key:      key,
		Count:    vals[1],
		Limit:    limit,
		Admitted: vals[0] == 1,
		TTL:      ttl,
	}, nil
}
