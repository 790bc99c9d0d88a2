// Package httpapi mounts the account, admin and metered API routes of the
// gateway service on a chi router, each group behind its guard pipeline.
package httpapi

import (
	"errors"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/identity"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Hasher hashes and checks account passwords. password.Argon2 satisfies it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

type Options struct {
	Gateway *goGate.Gateway
	Store   identity.Store
	Hasher  Hasher
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For or
	// X-Real-IP before any guard runs.
	TrustProxyHeaders bool
	// RandomInt overrides the random_number source.
	RandomInt func() int32
}

type server struct {
	gw     *goGate.Gateway
	store  identity.Store
	hasher Hasher
	logger *zap.Logger
	random func() int32
}

// NewRouter builds the service router.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Gateway == nil {
		return nil, errors.New("httpapi: gateway required")
	}
	if opts.Store == nil {
		return nil, errors.New("httpapi: identity store required")
	}
	if opts.Hasher == nil {
		return nil, errors.New("httpapi: password hasher required")
	}
	s := &server{
		gw:     opts.Gateway,
		store:  opts.Store,
		hasher: opts.Hasher,
		logger: opts.Gateway.Logger().Named("http"),
		random: opts.RandomInt,
	}
	if s.random == nil {
		s.random = randomInt32
	}

	session, err := middleware.NewPipeline("dashboard", middleware.SessionGuard(s.gw))
	if err != nil {
		return nil, err
	}
	admin, err := session.Extend("admin", middleware.RoleGuard(s.gw, goGate.RoleAdmin))
	if err != nil {
		return nil, err
	}
	metered, err := middleware.NewPipeline("api",
		middleware.RateLimiter(s.gw),
		middleware.APIKeyGuard(s.gw),
		middleware.AuditLogger(s.gw),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)

	r.Get("/ping", s.ping)
	r.Post("/login", s.login)
	r.Post("/register", s.register)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(session.Middleware())
		r.Get("/verify", s.verify)
		r.Post("/users/refresh_api_key", s.refreshOwnAPIKey)
		r.Get("/usage/{size}", s.usage)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.Middleware())
			r.Get("/users", s.listUsers)
			r.Post("/users", s.createUser)
			r.Get("/users/{id}", s.getUser)
			r.Delete("/users/{id}", s.deleteUser)
			r.Post("/users/{id}/revoke", s.revokeAPIKey)
			r.Post("/users/{id}/api_key", s.rotateAPIKey)
			r.Post("/users/{id}/{permission}", s.changePermission)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metered.Middleware())
		r.Get("/random_number", s.randomNumber)
	})

	return r, nil
}
