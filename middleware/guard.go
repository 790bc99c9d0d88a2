package middleware

import (
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"go.uber.org/zap"
)

const (
	headerAuthorization = "Authorization"
	headerAPIKey        = "x-api-key"
)

// Guard is one stage of a Pipeline. Handle either rejects the request through
// the pipeline's rejection path or calls next. It must not call next after
// rejecting.
type Guard interface {
	Name() string
	Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler)
}

// IdentityProvider is implemented by guards that populate RequestContext.Identity.
type IdentityProvider interface {
	ProvidesIdentity() bool
}

// IdentityConsumer is implemented by guards that read RequestContext.Identity.
type IdentityConsumer interface {
	RequiresIdentity() bool
}

/*
====================================
SESSION
====================================
*/

type sessionGuard struct {
	gw *goGate.Gateway
}

// SessionGuard authenticates the Authorization header as a session token.
// A leading "Bearer " is accepted. Every failure produces the same 401.
func SessionGuard(gw *goGate.Gateway) Guard {
	return &sessionGuard{gw: gw}
}

func (g *sessionGuard) Name() string           { return "session" }
func (g *sessionGuard) ProvidesIdentity() bool { return true }

func (g *sessionGuard) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	rc.Token = r.Header.Get(headerAuthorization)

	id, err := g.gw.VerifySession(r.Context(), rc.Token)
	if err != nil {
		reject(w, g.gw, rc, g.Name(), err, msgInvalidToken)
		return
	}

	rc.Identity = &id
	next.ServeHTTP(w, r)
}

/*
====================================
API KEY
====================================
*/

type apiKeyGuard struct {
	gw *goGate.Gateway
}

// APIKeyGuard authenticates the x-api-key header with one identity store
// lookup. A missing header is rejected without a lookup.
func APIKeyGuard(gw *goGate.Gateway) Guard {
	return &apiKeyGuard{gw: gw}
}

func (g *apiKeyGuard) Name() string           { return "api_key" }
func (g *apiKeyGuard) ProvidesIdentity() bool { return true }

func (g *apiKeyGuard) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	rc.APIKey = r.Header.Get(headerAPIKey)

	id, err := g.gw.AuthenticateAPIKey(r.Context(), rc.APIKey)
	if err != nil {
		reject(w, g.gw, rc, g.Name(), err, msgInvalidAPIKey)
		return
	}

	rc.Identity = &id
	next.ServeHTTP(w, r)
}

/*
====================================
ROLE
====================================
*/

type roleGuard struct {
	gw       *goGate.Gateway
	required goGate.Role
}

// RoleGuard admits identities whose freshly read role satisfies required.
// It must follow SessionGuard or APIKeyGuard.
func RoleGuard(gw *goGate.Gateway, required goGate.Role) Guard {
	return &roleGuard{gw: gw, required: required}
}

func (g *roleGuard) Name() string           { return "role:" + g.required.String() }
func (g *roleGuard) RequiresIdentity() bool { return true }

func (g *roleGuard) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	if rc.Identity == nil {
		// A validated pipeline always sets Identity before this guard.
		g.gw.Logger().Error("role guard reached without identity",
			zap.String("path", rc.Path),
			zap.String("request_id", rc.RequestID))
		reject(w, g.gw, rc, g.Name(), goGate.ErrUnauthenticated, msgUnauthenticated)
		return
	}

	id, err := g.gw.Authorize(r.Context(), *rc.Identity, g.required)
	if err != nil {
		reject(w, g.gw, rc, g.Name(), err, msgUnauthenticated)
		return
	}

	rc.Identity = &id
	next.ServeHTTP(w, r)
}
