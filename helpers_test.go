package goGate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/counter"
	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeIdentityStore counts every call so tests can assert how often a guard
// touched the store.
type fakeIdentityStore struct {
	mu      sync.Mutex
	byID    map[int64]Identity
	records []AuditRecord

	lookupErr error
	appendErr error

	apiKeyCalls atomic.Int64
	idCalls     atomic.Int64
	appendCalls atomic.Int64
}

func newFakeIdentityStore(ids ...Identity) *fakeIdentityStore {
	s := &fakeIdentityStore{byID: make(map[int64]Identity)}
	for _, id := range ids {
		s.byID[id.ID] = id
	}
	return s
}

func (s *fakeIdentityStore) FindByAPIKey(ctx context.Context, key string) (Identity, error) {
	s.apiKeyCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return Identity{}, s.lookupErr
	}
	for _, id := range s.byID {
		if id.APIKey != "" && id.APIKey == key {
			return id, nil
		}
	}
	return Identity{}, ErrIdentityNotFound
}

func (s *fakeIdentityStore) FindByID(ctx context.Context, id int64) (Identity, error) {
	s.idCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return Identity{}, s.lookupErr
	}
	found, ok := s.byID[id]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return found, nil
}

func (s *fakeIdentityStore) AppendAuditRecord(ctx context.Context, rec AuditRecord) error {
	s.appendCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeIdentityStore) setRole(id int64, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.byID[id]
	cur.Role = role
	s.byID[id] = cur
}

func (s *fakeIdentityStore) Records() []AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *fakeIdentityStore) totalCalls() int64 {
	return s.apiKeyCalls.Load() + s.idCalls.Load() + s.appendCalls.Load()
}

// failingCounters always reports an outage.
type failingCounters struct{}

func (failingCounters) Increment(context.Context, string, int64, time.Duration) (counter.Counter, error) {
	return counter.Counter{}, errors.New("connection refused")
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = testSecret
	return cfg
}

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return mock
}

// newTestGateway builds a gateway over store and an in-memory counter store
// driven by the returned mock clock.
func newTestGateway(t *testing.T, store IdentityStore, mutate func(*Builder)) (*Gateway, *clock.Mock) {
	t.Helper()

	mock := newMockClock()
	b := New().
		WithConfig(testConfig()).
		WithIdentityStore(store).
		WithCounterStore(counter.NewMemory(mock)).
		WithClock(mock)
	if mutate != nil {
		mutate(b)
	}

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g, mock
}
