package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/google/uuid"
)

// Pipeline is an ordered, validated list of guards folded around a handler.
//
// Pipeline instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Pipeline struct {
	name string
	// inherited holds the guards of every ancestor. They run only when no
	// enclosing pipeline attached a RequestContext.
	inherited []Guard
	guards    []Guard
}

// NewPipeline validates that every identity-consuming guard follows an
// identity-providing one and returns the pipeline.
func NewPipeline(name string, guards ...Guard) (*Pipeline, error) {
	return newPipeline(name, nil, guards)
}

// Extend returns a child pipeline for a nested route group. Inside p's route
// group the child runs only guards, reusing the RequestContext that p
// created. Mounted outside it, the child runs p's guards first.
func (p *Pipeline) Extend(name string, guards ...Guard) (*Pipeline, error) {
	if p == nil {
		return nil, errors.New("extend of nil pipeline")
	}
	inherited := make([]Guard, 0, len(p.inherited)+len(p.guards))
	inherited = append(inherited, p.inherited...)
	inherited = append(inherited, p.guards...)
	return newPipeline(p.name+"/"+name, inherited, guards)
}

func newPipeline(name string, inherited, guards []Guard) (*Pipeline, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("pipeline name required")
	}

	provided := false
	for _, g := range inherited {
		if providesIdentity(g) {
			provided = true
		}
	}
	for i, g := range guards {
		if g == nil {
			return nil, fmt.Errorf("pipeline %q: guard %d is nil", name, i)
		}
		if requiresIdentity(g) && !provided {
			return nil, fmt.Errorf("pipeline %q: guard %q requires an identity but no earlier guard provides one", name, g.Name())
		}
		if providesIdentity(g) {
			provided = true
		}
	}

	return &Pipeline{
		name:      name,
		inherited: inherited,
		guards:    append([]Guard(nil), guards...),
	}, nil
}

// Name returns the slash-joined names of p and its ancestors.
func (p *Pipeline) Name() string {
	return p.name
}

// Then folds the guards around h. The first guard runs outermost.
//
// A pipeline made by Extend runs only its own guards when an enclosing
// pipeline already attached a RequestContext. Mounted on its own, it runs the
// inherited guards first.
func (p *Pipeline) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}

	own := fold(p.guards, h)
	if len(p.inherited) == 0 {
		return entry(own, own)
	}
	return entry(own, fold(p.inherited, own))
}

func fold(guards []Guard, h http.Handler) http.Handler {
	next := h
	for i := len(guards) - 1; i >= 0; i-- {
		next = stage(guards[i], next)
	}
	return next
}

// Middleware returns Then as a chi compatible middleware.
func (p *Pipeline) Middleware() func(http.Handler) http.Handler {
	return p.Then
}

// entry runs nested when an enclosing pipeline already attached a
// RequestContext. Otherwise it attaches a fresh one and runs standalone.
func entry(nested, standalone http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goGate.RequestContextFrom(r.Context()); ok {
			nested.ServeHTTP(w, r)
			return
		}

		rc := &goGate.RequestContext{
			RequestID:     uuid.NewString(),
			SourceAddress: sourceAddress(r),
			Path:          r.URL.Path,
			Method:        r.Method,
			ReceivedAt:    time.Now(),
		}
		standalone.ServeHTTP(w, r.WithContext(goGate.WithRequestContext(r.Context(), rc)))
	})
}

func stage(g Guard, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, _ := goGate.RequestContextFrom(r.Context())
		if rc.Rejection() != nil {
			return
		}
		g.Handle(w, r, rc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rc.Rejection() != nil {
				return
			}
			next.ServeHTTP(w, r)
		}))
	})
}

// sourceAddress is the host part of RemoteAddr. Deployments behind a trusted
// proxy rewrite RemoteAddr before the pipeline runs.
func sourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func providesIdentity(g Guard) bool {
	p, ok := g.(IdentityProvider)
	return ok && p.ProvidesIdentity()
}

func requiresIdentity(g Guard) bool {
	c, ok := g.(IdentityConsumer)
	return ok && c.RequiresIdentity()
}
