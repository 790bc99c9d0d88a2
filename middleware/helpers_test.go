package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/counter"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"
)

type stubStore struct {
	mu        sync.Mutex
	ids       map[int64]goGate.Identity
	records   []goGate.AuditRecord
	appendErr error

	apiKeyCalls atomic.Int64
	idCalls     atomic.Int64
	appendCalls atomic.Int64
}

func newStubStore(ids ...goGate.Identity) *stubStore {
	s := &stubStore{ids: make(map[int64]goGate.Identity)}
	for _, id := range ids {
		s.ids[id.ID] = id
	}
	return s
}

func (s *stubStore) FindByAPIKey(ctx context.Context, key string) (goGate.Identity, error) {
	s.apiKeyCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.ids {
		if id.APIKey == key {
			return id, nil
		}
	}
	return goGate.Identity{}, goGate.ErrIdentityNotFound
}

func (s *stubStore) FindByID(ctx context.Context, id int64) (goGate.Identity, error) {
	s.idCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	found, ok := s.ids[id]
	if !ok {
		return goGate.Identity{}, goGate.ErrIdentityNotFound
	}
	return found, nil
}

func (s *stubStore) AppendAuditRecord(ctx context.Context, rec goGate.AuditRecord) error {
	s.appendCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *stubStore) Records() []goGate.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]goGate.AuditRecord(nil), s.records...)
}

type downCounters struct{}

func (downCounters) Increment(context.Context, string, int64, time.Duration) (counter.Counter, error) {
	return counter.Counter{}, errors.New("dial tcp: connection refused")
}

func newGateway(t *testing.T, store goGate.IdentityStore, mutate func(*goGate.Config, *goGate.Builder)) (*goGate.Gateway, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	cfg := goGate.DefaultConfig()
	cfg.Token.PrivateKey = []byte("middleware-test-secret-0123456789")

	b := goGate.New().
		WithIdentityStore(store).
		WithCounterStore(counter.NewMemory(mock)).
		WithClock(mock).
		WithLogger(zaptest.NewLogger(t))
	if mutate != nil {
		mutate(&cfg, b)
	}
	b.WithConfig(cfg)

	gw, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(gw.Close)
	return gw, mock
}

func mustPipeline(t *testing.T, name string, guards ...Guard) *Pipeline {
	t.Helper()
	p, err := NewPipeline(name, guards...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func okHandler(hits *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
