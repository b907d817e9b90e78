package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"
)

// RouteIndex is the cached global feed route.
const RouteIndex = "/"

// Key addresses one cached page: the route plus the per-request variant (the page number).
type Key struct {
	Route   string
	Variant string
}

// Ticket records the route generation observed by a Get. Writing back through the
// ticket stores the value under that generation, so a value computed before an
// invalidation can never be served after it.
type Ticket struct {
	key Key
	gen int64
	ok  bool
}

// PageCache caches rendered listing pages with a fixed TTL and per-route invalidation.
// Backend failures degrade to misses and never fail the request.
type PageCache struct {
	backend Backend
	ttl     time.Duration
}

// NewPageCache returns a cache storing entries for ttl. A zero ttl disables caching.
func NewPageCache(backend Backend, ttl time.Duration) *PageCache {
	return &PageCache{backend: backend, ttl: ttl}
}

// TTL returns the entry lifetime.
func (c *PageCache) TTL() time.Duration {
	return c.ttl
}

func generationKey(route string) string {
	return "page:" + route + ":gen"
}

func entryKey(k Key, gen int64) string {
	return fmt.Sprintf("page:%s:g%d:%s", k.Route, gen, k.Variant)
}

// Get returns the cached value for k. On a miss the returned ticket can be handed to Set.
func (c *PageCache) Get(ctx context.Context, k Key) ([]byte, Ticket, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, Ticket{}, false
	}
	ctx, span := observability.StartCacheSpan(ctx, "get", k.Route)

	gen, err := c.backend.Generation(ctx, generationKey(k.Route))
	if err != nil {
		observability.EndSpan(span, err)
		observability.RecordCacheLookup(k.Route, false)
		middleware.Logger.WarnContext(ctx, "page cache generation read failed",
			slog.String("route", k.Route), slog.String("error", err.Error()))
		return nil, Ticket{}, false
	}

	t := Ticket{key: k, gen: gen, ok: true}
	val, hit, err := c.backend.Get(ctx, entryKey(k, gen))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "page cache read failed",
			slog.String("route", k.Route), slog.String("error", err.Error()))
		hit = false
	}
	observability.RecordCacheLookup(k.Route, hit)
	observability.EndSpan(span, err)
	return val, t, hit
}

// Set stores value under the generation captured by t. Failures are logged and dropped.
func (c *PageCache) Set(ctx context.Context, t Ticket, value []byte) {
	if c == nil || c.ttl <= 0 || !t.ok {
		return
	}
	if err := c.backend.Set(ctx, entryKey(t.key, t.gen), value, c.ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "page cache write failed",
			slog.String("route", t.key.Route), slog.String("error", err.Error()))
	}
}

// Invalidate makes every cached variant of route unreachable. Concurrent invalidations
// each advance the generation, so none is lost.
func (c *PageCache) Invalidate(ctx context.Context, route string) error {
	if c == nil {
		return nil
	}
	ctx, span := observability.StartCacheSpan(ctx, "invalidate", route)
	_, err := c.backend.Bump(ctx, generationKey(route))
	observability.RecordInvalidation(route, err)
	observability.EndSpan(span, err)
	return err
}

// Fetch returns the cached page for k or computes, stores and returns it.
// The bool reports whether the value came from the cache.
func (c *PageCache) Fetch(ctx context.Context, k Key, compute func() ([]byte, error)) ([]byte, bool, error) {
	return c.FetchIf(ctx, k, func() ([]byte, bool, error) {
		val, err := compute()
		return val, true, err
	})
}

// FetchIf is Fetch for values that are not always worth keeping: compute
// reports whether its result may be stored.
func (c *PageCache) FetchIf(ctx context.Context, k Key, compute func() ([]byte, bool, error)) ([]byte, bool, error) {
	// the ticket is taken before computing so a concurrent invalidation wins
	cached, t, hit := c.Get(ctx, k)
	if hit {
		return cached, true, nil
	}
	val, store, err := compute()
	if err != nil {
		return nil, false, err
	}
	if store {
		c.Set(ctx, t, val)
	}
	return val, false, nil
}
