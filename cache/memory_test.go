package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type record struct {
	Name  string
	Count int
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	m := cache.NewMemory(0, cache.WithNowTime(clock.Now))
	t.Cleanup(func() { require.NoError(t, m.Close()) })

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "a", record{Name: "a", Count: 1}, time.Minute))
		var got record
		require.NoError(t, m.Get(ctx, "a", &got))
		require.Equal(t, record{Name: "a", Count: 1}, got)
	})

	t.Run("missing key", func(t *testing.T) {
		var got record
		err := m.Get(ctx, "missing", &got)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("expired key", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "short", record{Name: "short"}, time.Second))
		clock.Advance(2 * time.Second)
		var got record
		require.True(t, errors.Is(m.Get(ctx, "short", &got), errors.ErrNotFound))
	})

	t.Run("take removes the key", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "flash", record{Name: "flash"}, time.Minute))
		var got record
		require.NoError(t, m.Take(ctx, "flash", &got))
		require.Equal(t, "flash", got.Name)
		require.True(t, errors.Is(m.Take(ctx, "flash", &got), errors.ErrNotFound))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, "never-set"))
	})
}

func TestMemoryTakeRace(t *testing.T) {
	ctx := context.Background()
	m := cache.NewMemory(0)
	defer m.Close()

	for round := 0; round < 50; round++ {
		require.NoError(t, m.Set(ctx, "flash", record{Count: round}, time.Minute))

		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var got record
				if m.Take(ctx, "flash", &got) == nil {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), winners.Load())
	}
}

func TestMemoryJanitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	m := cache.NewMemory(5*time.Millisecond, cache.WithNowTime(clock.Now))

	require.NoError(t, m.Set(ctx, "gone", record{}, time.Second))
	require.NoError(t, m.Set(ctx, "kept", record{}, 0))
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
