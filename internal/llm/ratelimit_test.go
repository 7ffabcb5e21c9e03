package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t  time.Time
	mu sync.Mutex
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(perMinute int) (*rateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(perMinute)
	rl.now = clock.now
	rl.lastRefill = clock.now()
	return rl, clock
}

func take(rl *rateLimiter) bool {
	_, ok := rl.reserve()
	return ok
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		rl, _ := newTestLimiter(5)

		for i := 0; i < 5; i++ {
			assert.True(t, take(rl), "attempt %d", i+1)
		}
		assert.False(t, take(rl))
	})

	t.Run("refills over time", func(t *testing.T) {
		rl, clock := newTestLimiter(60) // one per second

		for i := 0; i < 60; i++ {
			require.True(t, take(rl))
		}
		assert.False(t, take(rl))

		clock.advance(500 * time.Millisecond)
		delay, ok := rl.reserve()
		assert.False(t, ok)
		assert.InDelta(t, float64(500*time.Millisecond), float64(delay), float64(time.Millisecond))

		clock.advance(500 * time.Millisecond)
		assert.True(t, take(rl))
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		rl, clock := newTestLimiter(3)
		clock.advance(time.Hour)

		for i := 0; i < 3; i++ {
			require.True(t, take(rl))
		}
		assert.False(t, take(rl))
	})

	t.Run("default rate limit", func(t *testing.T) {
		rl := newRateLimiter(0)
		for i := 0; i < 50; i++ {
			require.True(t, take(rl))
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl, _ := newTestLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := rl.wait(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limiter canceled")
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl, _ := newTestLimiter(100)

		var (
			acquired int
			mu       sync.Mutex
			wg       sync.WaitGroup
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if take(rl) {
						mu.Lock()
						acquired++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, acquired)
	})
}
