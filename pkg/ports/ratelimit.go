package ports

import (
	"context"
	"time"
)

// Decision is the outcome of one RateLimiter.Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the time left in the current window.
	RetryAfter time.Duration
}

// RateLimiter counts requests per key in fixed windows.
// Implementations must be safe for concurrent use, across replicas when backed by a shared store.
type RateLimiter interface {
	// Allow records one request for key and reports whether it fits the current window.
	Allow(ctx context.Context, key string) (Decision, error)
}
