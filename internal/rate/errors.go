package rate

import "errors"

var (
	// ErrRateLimited is returned when the subject's quota is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrCounterUnavailable is returned when the counter store cannot answer.
	ErrCounterUnavailable = errors.New("counter store unavailable")
)
