package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	goGate "github.com/MrEthical07/goGate"
)

type rejectThenContinue struct{}

func (rejectThenContinue) Name() string { return "misbehaving" }

func (rejectThenContinue) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	rc.Reject(goGate.ErrUnauthorized)
	http.Error(w, "no", http.StatusForbidden)
	next.ServeHTTP(w, r)
}

type recordingGuard struct {
	name  string
	order *[]string
}

func (g recordingGuard) Name() string { return g.name }

func (g recordingGuard) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	*g.order = append(*g.order, g.name)
	next.ServeHTTP(w, r)
}

func TestNewPipelineOrdering(t *testing.T) {
	gw, _ := newGateway(t, newStubStore(), nil)

	tests := []struct {
		name    string
		guards  []Guard
		wantErr bool
	}{
		{"empty", nil, false},
		{"role after session", []Guard{SessionGuard(gw), RoleGuard(gw, goGate.RoleAdmin)}, false},
		{"role after api key", []Guard{APIKeyGuard(gw), RoleGuard(gw, goGate.RoleUser)}, false},
		{"role first", []Guard{RoleGuard(gw, goGate.RoleAdmin), SessionGuard(gw)}, true},
		{"api group", []Guard{RateLimiter(gw), APIKeyGuard(gw), AuditLogger(gw)}, false},
		{"best effort audit first", []Guard{AuditLogger(gw), APIKeyGuard(gw)}, false},
		{"strict audit first", []Guard{StrictAuditLogger(gw), APIKeyGuard(gw)}, true},
		{"identity rate limit first", []Guard{RateLimiter(gw, KeyByIdentity), APIKeyGuard(gw)}, true},
		{"identity rate limit after key", []Guard{APIKeyGuard(gw), RateLimiter(gw, KeyByIdentity)}, false},
		{"nil guard", []Guard{SessionGuard(gw), nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline("p", tt.guards...)
			if tt.wantErr && err == nil {
				t.Fatal("expected ordering error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	if _, err := NewPipeline(" ", SessionGuard(gw)); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestExtendValidatesAgainstParent(t *testing.T) {
	gw, _ := newGateway(t, newStubStore(), nil)

	open := mustPipeline(t, "open", RateLimiter(gw))
	if _, err := open.Extend("admin", RoleGuard(gw, goGate.RoleAdmin)); err == nil {
		t.Fatal("expected error: no ancestor provides identity")
	}

	dash := mustPipeline(t, "dash", SessionGuard(gw))
	child, err := dash.Extend("admin", RoleGuard(gw, goGate.RoleAdmin))
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if len(child.guards) != 1 {
		t.Fatalf("child must run only its own guards, got %d", len(child.guards))
	}
	grand, err := child.Extend("audit", StrictAuditLogger(gw))
	if err != nil {
		t.Fatalf("Extend grandchild: %v", err)
	}
	if grand.Name() != "dash/admin/audit" {
		t.Fatalf("unexpected name %q", grand.Name())
	}
	if !strings.Contains(grand.Name(), child.Name()) {
		t.Fatal("grandchild name must include parent")
	}

	var nilPipeline *Pipeline
	if _, err := nilPipeline.Extend("x"); err == nil {
		t.Fatal("expected error extending nil pipeline")
	}
}

func TestPipelineRunsGuardsInOrder(t *testing.T) {
	var order []string
	p := mustPipeline(t, "p",
		recordingGuard{name: "a", order: &order},
		recordingGuard{name: "b", order: &order},
		recordingGuard{name: "c", order: &order},
	)

	var hits atomic.Int64
	rec := serve(p.Then(okHandler(&hits)), http.MethodGet, "/x", nil)
	if rec.Code != http.StatusOK || hits.Load() != 1 {
		t.Fatalf("expected handler to run once, got status %d hits %d", rec.Code, hits.Load())
	}
	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestPipelineBlocksNextAfterRejection(t *testing.T) {
	var order []string
	p := mustPipeline(t, "p",
		rejectThenContinue{},
		recordingGuard{name: "after", order: &order},
	)

	var hits atomic.Int64
	rec := serve(p.Then(okHandler(&hits)), http.MethodGet, "/x", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if hits.Load() != 0 || len(order) != 0 {
		t.Fatalf("downstream ran after rejection: hits=%d order=%v", hits.Load(), order)
	}
}

func TestPipelineRequestContext(t *testing.T) {
	var rc *goGate.RequestContext
	p := mustPipeline(t, "p")
	h := p.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, _ = goGate.RequestContextFrom(r.Context())
	}))

	serve(h, http.MethodPost, "/v1/things", nil)
	if rc == nil {
		t.Fatal("expected request context")
	}
	if rc.RequestID == "" || rc.Path != "/v1/things" || rc.Method != http.MethodPost {
		t.Fatalf("unexpected request context %+v", rc)
	}
	if rc.SourceAddress != "192.0.2.1" {
		t.Fatalf("expected host of RemoteAddr, got %q", rc.SourceAddress)
	}
	if rc.ReceivedAt.IsZero() {
		t.Fatal("expected ReceivedAt")
	}
}

func TestPipelineNilHandler(t *testing.T) {
	rec := serve(mustPipeline(t, "p").Then(nil), http.MethodGet, "/x", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{goGate.ErrUnauthenticated, http.StatusUnauthorized},
		{goGate.ErrUnauthorized, http.StatusForbidden},
		{&goGate.RateLimitError{}, http.StatusTooManyRequests},
		{goGate.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{goGate.ErrInternal, http.StatusInternalServerError},
		{goGate.ErrGatewayNotReady, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Fatalf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
