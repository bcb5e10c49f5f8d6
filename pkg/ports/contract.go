package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRateLimiterContract runs a suite of tests to verify that a RateLimiter implementation
// adheres to the defined interface contract.
//
// newLimiter must return a limiter allowing limit requests per window. advance moves the
// limiter's clock forward.
func RunRateLimiterContract(t *testing.T, newLimiter func(limit int, window time.Duration) RateLimiter, advance func(time.Duration)) {
	ctx := context.Background()

	t.Run("Allows Up To Limit", func(t *testing.T) {
		rl := newLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			d, err := rl.Allow(ctx, "client-a")
			require.NoError(t, err)
			assert.True(t, d.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 3, d.Limit)
			assert.Equal(t, 2-i, d.Remaining)
		}

		d, err := rl.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Greater(t, d.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, d.RetryAfter, time.Minute)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		rl := newLimiter(1, time.Minute)
		d, err := rl.Allow(ctx, "client-b")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = rl.Allow(ctx, "client-c")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = rl.Allow(ctx, "client-b")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("Window Resets", func(t *testing.T) {
		rl := newLimiter(1, time.Minute)
		d, err := rl.Allow(ctx, "client-d")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = rl.Allow(ctx, "client-d")
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		advance(time.Minute + time.Second)

		d, err = rl.Allow(ctx, "client-d")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("Concurrent Callers Share The Budget", func(t *testing.T) {
		rl := newLimiter(10, time.Hour)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := rl.Allow(ctx, "client-e")
				assert.NoError(t, err)
				if d.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, allowed)
	})
}
