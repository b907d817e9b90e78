package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Allow(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "comment", "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, err := l.Allow(ctx, "comment", "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "comment", "user:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_DisabledAllowsEverything(t *testing.T) {
	l := NewRateLimiter(nil, false)
	ok, err := l.Allow(context.Background(), "x", "y", 0, time.Second)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_NilRedis(t *testing.T) {
	l := NewRateLimiter(nil, true)
	ok, err := l.Allow(context.Background(), "x", "y", 1, time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_Middleware(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, true)

	app := fiber.New()
	app.Post("/login", l.Limit("login", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimiter_FailPolicies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, true)
	mr.Close()

	app := fiber.New()
	app.Get("/open", l.Limit("open", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/closed", l.Limit("closed", 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/closed", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
