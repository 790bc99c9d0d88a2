package middleware

import (
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type auditLogger struct {
	gw     *goGate.Gateway
	strict bool
}

// AuditLogger invokes downstream first, then appends one usage record with
// the response status. Requests without an identity are skipped and a store
// failure never changes the response.
func AuditLogger(gw *goGate.Gateway) Guard {
	return &auditLogger{gw: gw}
}

// StrictAuditLogger is AuditLogger with a construction-time check that an
// identity-providing guard precedes it.
func StrictAuditLogger(gw *goGate.Gateway) Guard {
	return &auditLogger{gw: gw, strict: true}
}

func (g *auditLogger) Name() string           { return "audit" }
func (g *auditLogger) RequiresIdentity() bool { return g.strict }

func (g *auditLogger) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	// Errors are logged and counted by the gateway.
	_ = g.gw.RecordAudit(r.Context(), rc, status)
}
