package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	goGate "github.com/MrEthical07/goGate"
)

// KeySource selects what a RateLimiter counts requests by.
type KeySource int

const (
	// KeyBySourceAddress counts per client address. It is the default.
	KeyBySourceAddress KeySource = iota
	// KeyByIdentity counts per authenticated identity. A RateLimiter using it
	// must follow an identity-providing guard.
	KeyByIdentity
)

type rateLimiter struct {
	gw  *goGate.Gateway
	key KeySource
}

// RateLimiter admits at most Config.RateLimit.MaxRequests per window and key.
// Rejected requests get 429 with Retry-After; a counter store outage gets 503.
func RateLimiter(gw *goGate.Gateway, source ...KeySource) Guard {
	g := &rateLimiter{gw: gw, key: KeyBySourceAddress}
	if len(source) > 0 {
		g.key = source[0]
	}
	return g
}

func (g *rateLimiter) Name() string { return "rate_limit" }

func (g *rateLimiter) RequiresIdentity() bool { return g.key == KeyByIdentity }

func (g *rateLimiter) subject(rc *goGate.RequestContext) string {
	if g.key == KeyByIdentity && rc.Identity != nil {
		return "id:" + strconv.FormatInt(rc.Identity.ID, 10)
	}
	return rc.SourceAddress
}

func (g *rateLimiter) Handle(w http.ResponseWriter, r *http.Request, rc *goGate.RequestContext, next http.Handler) {
	q, err := g.gw.Admit(r.Context(), g.subject(rc))
	if err != nil {
		var rl *goGate.RateLimitError
		if errors.As(err, &rl) {
			rl.Address = rc.SourceAddress
			setQuotaHeaders(w, rl.Limit, 0)
			if secs := retryAfterSeconds(rl); secs > 0 {
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			}
			reject(w, g.gw, rc, g.Name(), rl, rl.Error())
			return
		}
		reject(w, g.gw, rc, g.Name(), err, msgUnavailable)
		return
	}

	setQuotaHeaders(w, q.Limit, q.Remaining)
	next.ServeHTTP(w, r)
}

func setQuotaHeaders(w http.ResponseWriter, limit, remaining int64) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(rl *goGate.RateLimitError) int64 {
	d := rl.RetryAfter
	if d <= 0 {
		d = rl.Window
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
