// Package middleware turns goGate.Gateway operations into net/http guards and
// composes them into ordered pipelines.
//
// # Guards
//
//   - [SessionGuard] verifies the Authorization token. No store calls.
//   - [APIKeyGuard] resolves the x-api-key header through the identity store.
//   - [RoleGuard] re-reads the caller's role and enforces a minimum tier.
//   - [RateLimiter] applies the per-address quota and fails closed.
//   - [AuditLogger] runs downstream first, then appends one usage record.
//
// # Pipelines
//
// [NewPipeline] validates guard order once, at configuration time: a guard
// that needs an identity must follow one that provides it. [Pipeline.Extend]
// derives a child for a nested route group that runs only the added guards and
// reuses the parent's RequestContext.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gateway calls and Gateway errors
// into status codes. Every decision is delegated to the Gateway.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Gateway).
//   - Access Redis or SQL stores (Gateway handles I/O).
//   - Write a 2xx response; only downstream handlers do.
package middleware
