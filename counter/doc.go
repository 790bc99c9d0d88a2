// Package counter implements the keyed, expiring request counters behind the
// gateway rate limiter.
//
// # Window semantics
//
// Every Store performs one atomic step per call: if the key's count has reached
// the limit the call is rejected and nothing changes; otherwise the count is
// incremented and the key's expiry is re-armed to the full window. A key that
// sees no accepted request for a whole window expires and the next request
// starts again at 1. Rejected calls never increment.
//
// # Architecture boundaries
//
// Stores know nothing about HTTP, identities or quotas beyond the limit and
// window passed per call. Key layout is owned by the caller.
//
// # What this package must NOT do
//
//   - Fail open. Any backend error is returned wrapped in ErrUnavailable.
//   - Retry. A failed call is reported once and the caller decides.
package counter
