// Package goGate provides the guards of an HTTP API gateway: session token
// verification, API key authentication, role authorization with a fresh store
// read, a fixed-window rate limiter that fails closed, and a best-effort audit
// log of completed requests.
//
// The package is designed for concurrent server workloads: Gateway methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the decision layer. It exposes [Gateway], [Builder], [Config] and value types
// (Identity, AuditRecord, RequestContext). HTTP wiring lives in the middleware package,
// counter backends in counter, user databases in identity, and the window arithmetic in
// internal/rate.
//
// # What this package must NOT do
//
//   - Write HTTP responses. Guards in the middleware package map errors to statuses.
//   - Cache roles. Authorize reads the identity store on every call.
//   - Admit a request when the counter store cannot answer.
//   - Log credentials (tokens, API keys, passwords).
//
// # Performance contract
//
// VerifySession performs no store I/O. AuthenticateAPIKey and Authorize perform exactly one
// identity store read, Admit one counter store round-trip, RecordAudit one append.
package goGate
