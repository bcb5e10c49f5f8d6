package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/fsmconv/pkg/ports"
)

// RateLimiter implements ports.RateLimiter using Redis.
// Every replica pointed at the same Redis shares one budget per key.
type RateLimiter struct {
	client backend.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithPrefix sets the key namespace (default "fsmconv:").
func WithPrefix(prefix string) Option {
	return func(r *RateLimiter) {
		r.prefix = prefix
	}
}

// WithClock overrides time.Now when computing window boundaries.
func WithClock(now func() time.Time) Option {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// NewRateLimiter allows limit requests per key in every window.
func NewRateLimiter(client backend.UniversalClient, limit int, window time.Duration, opts ...Option) *RateLimiter {
	r := &RateLimiter{
		client: client,
		prefix: "fsmconv:",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromURL connects to the Redis server at url (redis://host:port/db).
func NewFromURL(url string, limit int, window time.Duration, opts ...Option) (*RateLimiter, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRateLimiter(backend.NewClient(o), limit, window, opts...), nil
}

// Allow increments the counter of the current window using INCR and PEXPIRE
// in one MULTI/EXEC transaction. Windows are aligned to the epoch.
func (r *RateLimiter) Allow(ctx context.Context, key string) (ports.Decision, error) {
	now := r.now()
	size := r.window.Milliseconds()
	if size <= 0 {
		size = 1
	}
	slot := now.UnixMilli() / size
	redisKey := r.prefix + "rate:" + key + ":" + strconv.FormatInt(slot, 10)

	var incr *backend.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return ports.Decision{}, fmt.Errorf("redis error counting request: %w", err)
	}

	count := int(incr.Val())
	end := time.UnixMilli((slot + 1) * size)
	return ports.Decision{
		Allowed:    count <= r.limit,
		Limit:      r.limit,
		Remaining:  max(r.limit-count, 0),
		RetryAfter: end.Sub(now),
	}, nil
}

// Ping checks connectivity.
func (r *RateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RateLimiter) Close() error {
	return r.client.Close()
}
