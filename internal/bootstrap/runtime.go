// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const janitorInterval = time.Minute

// Options control runtime initialization behavior.
type Options struct {
	// SkipRedis keeps everything in process, e.g. for one-shot commands.
	SkipRedis bool
	// Tracing starts the OpenTelemetry exporter.
	Tracing bool
}

// Runtime holds the long-lived dependencies of the service.
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client // nil when Redis is unreachable or skipped
	Pages    *cache.PageCache
	Store    storage.Storage
	Flags    *featureflags.Manager
	Notifier *notifications.Notifier

	shutdownTracing func(context.Context) error
	stopJanitor     context.CancelFunc
}

// InitRuntime connects the database, Redis and storage. A missing Redis is not
// fatal: the page cache falls back to process memory and live events are off.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Flags:  featureflags.NewManager(cfg.FeatureFlags),
	}
	if bad := rt.Flags.Invalid(); len(bad) > 0 {
		middleware.Logger.Warn("ignoring malformed feature flags", slog.Any("entries", bad))
	}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    "inkwell",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TraceSampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if !opts.SkipRedis {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("redis unavailable, using in-memory page cache",
				slog.String("addr", cfg.RedisURL), slog.String("error", err.Error()))
		} else {
			rt.Redis = rdb
		}
	}

	var backend cache.Backend
	if rt.Redis != nil {
		backend = cache.NewRedisBackend(rt.Redis)
	} else {
		mem := cache.NewMemoryBackend()
		janitorCtx, cancel := context.WithCancel(context.Background())
		rt.stopJanitor = cancel
		go mem.RunJanitor(janitorCtx, janitorInterval)
		backend = mem
	}
	rt.Pages = cache.NewPageCache(backend, cfg.PageCacheTTL())
	rt.Notifier = notifications.NewNotifier(rt.Redis)

	store, err := storage.New(cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	rt.Store = store

	return rt, nil
}

// LiveFeedEnabled reports whether /ws/feed should be served.
func (rt *Runtime) LiveFeedEnabled() bool {
	return rt.Notifier.Enabled() && rt.Flags.Enabled(featureflags.LiveFeed, 0)
}

// Close releases everything InitRuntime opened.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.stopJanitor != nil {
		rt.stopJanitor()
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
