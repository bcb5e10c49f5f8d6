package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/fsmconv/pkg/ports"
)

// RateLimiter implements ports.RateLimiter in memory.
// Safe for concurrent use. Counters are local to the process.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// NewRateLimiter allows limit requests per key in every window.
func NewRateLimiter(limit int, period time.Duration, opts ...Option) *RateLimiter {
	r := &RateLimiter{
		limit:   limit,
		window:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow records one request for key.
func (r *RateLimiter) Allow(ctx context.Context, key string) (ports.Decision, error) {
	if err := ctx.Err(); err != nil {
		return ports.Decision{}, err
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[key]
	if !ok || now.Sub(w.start) >= r.window {
		r.sweep(now)
		w = &window{start: now}
		r.windows[key] = w
	}
	w.count++

	return ports.Decision{
		Allowed:    w.count <= r.limit,
		Limit:      r.limit,
		Remaining:  max(r.limit-w.count, 0),
		RetryAfter: w.start.Add(r.window).Sub(now),
	}, nil
}

// sweep drops expired windows so idle keys do not accumulate. Caller holds mu.
func (r *RateLimiter) sweep(now time.Time) {
	for k, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, k)
		}
	}
}
