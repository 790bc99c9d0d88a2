package counter

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// sweepBudget bounds how many entries one Increment examines for expiry.
const sweepBudget = 16

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// Memory is an in-process Store for single-instance deployments and tests.
// Its clock is injectable so window expiry can be driven deterministically.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[string]memoryEntry
}

// NewMemory creates a Memory store. A nil clk uses the wall clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{
		clock: clk,
		items: make(map[string]memoryEntry),
	}
}

// Increment runs the check-increment-expire step for key under the store lock.
func (s *Memory) Increment(ctx context.Context, key string, limit int64, window time.Duration) (Counter, error) {
	if err := validateQuota(limit, window); err != nil {
		return Counter{}, err
	}
	if err := ctx.Err(); err != nil {
		return Counter{}, err
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepSome(now)

	entry, ok := s.items[key]
	if ok && !now.Before(entry.expiresAt) {
		entry = memoryEntry{}
	}
	if entry.count >= limit {
		return Counter{
			Key:   key,
			Count: entry.count,
			Limit: limit,
			TTL:   entry.expiresAt.Sub(now),
		}, nil
	}

	entry.count++
	entry.expiresAt = now.Add(window)
	s.items[key] = entry

	return Counter{
		Key:      key,
		Count:    entry.count,
		Limit:    limit,
		Admitted: true,
		TTL:      window,
	}, nil
}

// Len returns the number of live keys.
func (s *Memory) Len() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	return len(s.items)
}

// sweepSome drops expired entries among at most sweepBudget keys. Map
// iteration order is randomized, so repeated calls reach every key.
func (s *Memory) sweepSome(now time.Time) {
	n := 0
	for k, v := range s.items {
		if n == sweepBudget {
			return
		}
		n++
		if !now.Before(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func (s *Memory) sweep(now time.Time) {
	for k, v := range s.items {
		if !now.Before(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
