package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisBackend(rdb)
}

func backends(t *testing.T) map[string]Backend {
	_, rb := newRedisBackend(t)
	return map[string]Backend{
		"redis":  rb,
		"memory": NewMemoryBackend(),
	}
}

func TestPageCache_HitMissInvalidate(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewPageCache(b, time.Minute)
			k := Key{Route: RouteIndex, Variant: "1"}

			_, ticket, hit := c.Get(ctx, k)
			assert.False(t, hit)
			c.Set(ctx, ticket, []byte("page one"))

			val, _, hit := c.Get(ctx, k)
			require.True(t, hit)
			assert.Equal(t, "page one", string(val))

			other := Key{Route: RouteIndex, Variant: "2"}
			_, t2, _ := c.Get(ctx, other)
			c.Set(ctx, t2, []byte("page two"))

			require.NoError(t, c.Invalidate(ctx, RouteIndex))

			_, _, hit = c.Get(ctx, k)
			assert.False(t, hit, "variant 1 must be gone after invalidate")
			_, _, hit = c.Get(ctx, other)
			assert.False(t, hit, "variant 2 must be gone after invalidate")
		})
	}
}

func TestPageCache_SetAfterInvalidateIsNotServed(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewPageCache(b, time.Minute)
			k := Key{Route: RouteIndex, Variant: "1"}

			// reader misses, then a writer invalidates while the reader renders
			_, ticket, hit := c.Get(ctx, k)
			require.False(t, hit)
			require.NoError(t, c.Invalidate(ctx, RouteIndex))
			c.Set(ctx, ticket, []byte("stale"))

			_, _, hit = c.Get(ctx, k)
			assert.False(t, hit)
		})
	}
}

func TestPageCache_OtherRoutesUnaffected(t *testing.T) {
	ctx := context.Background()
	c := NewPageCache(NewMemoryBackend(), time.Minute)
	k := Key{Route: "/group/cats/", Variant: "1"}

	_, ticket, _ := c.Get(ctx, k)
	c.Set(ctx, ticket, []byte("cats"))
	require.NoError(t, c.Invalidate(ctx, RouteIndex))

	val, _, hit := c.Get(ctx, k)
	require.True(t, hit)
	assert.Equal(t, "cats", string(val))
}

func TestPageCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b := NewMemoryBackend()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		b.now = func() time.Time { return now }
		c := NewPageCache(b, 20*time.Second)
		k := Key{Route: RouteIndex, Variant: "1"}

		_, ticket, _ := c.Get(ctx, k)
		c.Set(ctx, ticket, []byte("v"))

		now = now.Add(19 * time.Second)
		_, _, hit := c.Get(ctx, k)
		assert.True(t, hit)

		now = now.Add(2 * time.Second)
		_, _, hit = c.Get(ctx, k)
		assert.False(t, hit)
	})

	t.Run("redis", func(t *testing.T) {
		mr, b := newRedisBackend(t)
		c := NewPageCache(b, 20*time.Second)
		k := Key{Route: RouteIndex, Variant: "1"}

		_, ticket, _ := c.Get(ctx, k)
		c.Set(ctx, ticket, []byte("v"))
		_, _, hit := c.Get(ctx, k)
		assert.True(t, hit)

		mr.FastForward(21 * time.Second)
		_, _, hit = c.Get(ctx, k)
		assert.False(t, hit)
	})
}

func TestPageCache_DisabledWithZeroTTL(t *testing.T) {
	ctx := context.Background()
	c := NewPageCache(NewMemoryBackend(), 0)
	k := Key{Route: RouteIndex, Variant: "1"}

	_, ticket, _ := c.Get(ctx, k)
	c.Set(ctx, ticket, []byte("v"))
	_, _, hit := c.Get(ctx, k)
	assert.False(t, hit)
}

func TestPageCache_Fetch(t *testing.T) {
	ctx := context.Background()
	c := NewPageCache(NewMemoryBackend(), time.Minute)
	k := Key{Route: RouteIndex, Variant: "3"}
	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("rendered"), nil
	}

	val, cached, err := c.Fetch(ctx, k, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "rendered", string(val))

	val, cached, err = c.Fetch(ctx, k, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "rendered", string(val))
	assert.Equal(t, 1, calls)

	_, _, err = c.Fetch(ctx, Key{Route: RouteIndex, Variant: "4"}, func() ([]byte, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
}

func TestPageCache_FetchIfSkipsUnwantedValues(t *testing.T) {
	ctx := context.Background()
	c := NewPageCache(NewMemoryBackend(), time.Minute)
	k := Key{Route: RouteIndex, Variant: "99"}
	calls := 0
	compute := func() ([]byte, bool, error) {
		calls++
		return []byte("empty"), false, nil
	}

	for i := 0; i < 2; i++ {
		val, cached, err := c.FetchIf(ctx, k, compute)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "empty", string(val))
	}
	assert.Equal(t, 2, calls)

	_, _, hit := c.Get(ctx, k)
	assert.False(t, hit)
}

func TestPageCache_RedisDownDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	mr, b := newRedisBackend(t)
	c := NewPageCache(b, time.Minute)
	k := Key{Route: RouteIndex, Variant: "1"}

	mr.Close()

	val, cached, err := c.Fetch(ctx, k, func() ([]byte, error) { return []byte("fresh"), nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fresh", string(val))
	assert.Error(t, c.Invalidate(ctx, RouteIndex))
}

func TestMemoryBackend_ConcurrentBumpsAreNotLost(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Bump(ctx, "g")
		}()
	}
	wg.Wait()

	g, err := b.Generation(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(50), g)
}

func TestMemoryBackend_Sweep(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Hour))
	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, b.Sweep())
	_, ok, _ := b.Get(ctx, "b")
	assert.True(t, ok)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "redis://localhost:abc")
	assert.Error(t, err)
}
