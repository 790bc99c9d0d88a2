package goGate

import "context"

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx. The pipeline calls it once at entry;
// nested pipelines find the existing value and reuse it.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext attached to ctx, if any.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// IdentityFrom returns a copy of the identity resolved for the request in ctx.
// Handlers behind an authenticating guard use it to find the caller.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	rc, ok := RequestContextFrom(ctx)
	if !ok || rc.Identity == nil {
		return Identity{}, false
	}
	return *rc.Identity, true
}
