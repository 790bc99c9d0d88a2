// Package rate turns counter store replies into quota decisions for the
// gateway rate limiter.
//
// # Window semantics
//
// Fixed re-arming window: each accepted request increments the key and resets
// its expiry to the full window. Key layout is prefix + subject, where the
// default prefix is "rate_limiter:" and the subject is a source address.
//
// # What this package must NOT do
//
//   - Talk to Redis directly (that is counter.Redis).
//   - Fail open on store errors.
//   - Be imported outside the goGate module.
package rate
