package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"
)

// Backend stores opaque cache entries and per-route generation counters.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Generation returns the counter stored at key, 0 when unset.
	Generation(ctx context.Context, key string) (int64, error)
	// Bump atomically increments the counter at key and returns the new value.
	Bump(ctx context.Context, key string) (int64, error)
}

// RedisBackend keeps entries in Redis so every server process shares them.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend wraps an initialized client.
func NewRedisBackend(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Generation(ctx context.Context, key string) (int64, error) {
	raw, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (b *RedisBackend) Bump(ctx context.Context, key string) (int64, error) {
	return b.rdb.Incr(ctx, key).Result()
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is the in-process fallback used when Redis is unavailable.
// Entries are only visible to the process that wrote them.
type MemoryBackend struct {
	entries cmap.ConcurrentMap[string, memEntry]
	gens    cmap.ConcurrentMap[string, int64]
	now     func() time.Time
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: cmap.New[memEntry](),
		gens:    cmap.New[int64](),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := b.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expiresAt) {
		b.entries.RemoveCb(key, func(_ string, v memEntry, exists bool) bool {
			return exists && !b.now().Before(v.expiresAt)
		})
		return nil, false, nil
	}
	return e.value, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.entries.Set(key, memEntry{value: cp, expiresAt: b.now().Add(ttl)})
	return nil
}

func (b *MemoryBackend) Generation(_ context.Context, key string) (int64, error) {
	g, _ := b.gens.Get(key)
	return g, nil
}

func (b *MemoryBackend) Bump(_ context.Context, key string) (int64, error) {
	return b.gens.Upsert(key, 1, func(exist bool, current int64, _ int64) int64 {
		if exist {
			return current + 1
		}
		return 1
	}), nil
}

// Sweep drops expired entries and returns how many were removed.
func (b *MemoryBackend) Sweep() int {
	now := b.now()
	removed := 0
	for item := range b.entries.IterBuffered() {
		if now.Before(item.Val.expiresAt) {
			continue
		}
		if b.entries.RemoveCb(item.Key, func(_ string, v memEntry, exists bool) bool {
			return exists && !now.Before(v.expiresAt)
		}) {
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (b *MemoryBackend) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep()
		}
	}
}
