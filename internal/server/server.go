// Package server contains the HTTP and WebSocket handlers of the blogging service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/auth"
	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds every dependency of the HTTP layer.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	pages          *cache.PageCache
	store          storage.Storage
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *auth.TokenManager
	rateLimiter    *middleware.RateLimiter

	notifier *notifications.Notifier
	hub      *notifications.Hub // nil when the live feed is off

	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	groupService   *service.GroupService
	userService    *service.UserService

	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
}

// NewServer builds the services on top of an initialized runtime.
func NewServer(rt *bootstrap.Runtime) *Server {
	cfg := rt.Config

	userRepo := repository.NewUserRepository(rt.DB)
	groupRepo := repository.NewGroupRepository(rt.DB)
	postRepo := repository.NewPostRepository(rt.DB)
	commentRepo := repository.NewCommentRepository(rt.DB)
	followRepo := repository.NewFollowRepository(rt.DB)

	s := &Server{
		config:         cfg,
		db:             rt.DB,
		redis:          rt.Redis,
		pages:          rt.Pages,
		store:          rt.Store,
		promMiddleware: middleware.InitMetrics("inkwell"),
		tokens:         auth.NewTokenManager(cfg.JWTSecret, auth.DefaultTTL),
		rateLimiter:    middleware.NewRateLimiter(rt.Redis, rt.Redis != nil && cfg.Env != "test"),
		notifier:       rt.Notifier,
	}

	s.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, commentRepo, rt.Store, cfg.PostsPerPage)
	s.postService = service.NewPostService(service.PostServiceConfig{
		Posts:         postRepo,
		Groups:        groupRepo,
		Store:         rt.Store,
		Pages:         rt.Pages,
		Notifier:      rt.Notifier,
		Flags:         rt.Flags,
		MaxImageBytes: int64(cfg.ImageMaxUploadSizeMB) << 20,
	})
	s.commentService = service.NewCommentService(commentRepo)
	s.followService = service.NewFollowService(userRepo, followRepo)
	s.groupService = service.NewGroupService(groupRepo, userRepo, rt.Pages)
	s.userService = service.NewUserService(userRepo, rt.Pages)

	if rt.LiveFeedEnabled() {
		s.hub = notifications.NewHub(0)
	}
	return s
}

// App returns the configured Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Inkwell",
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) << 20,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, fe)
			}
			return s.respondError(c, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// identity first so the context and the rate limiter can see the user
	app.Use(middleware.IdentityResolver(s.tokens))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell Metrics Dashboard",
	}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	if s.config.StorageBackend == "disk" && s.config.MediaURL != "" {
		app.Static(strings.TrimSuffix(s.config.MediaURL, "/"), s.config.MediaRoot, fiber.Static{
			ByteRange: true,
			MaxAge:    3600,
		})
	}

	// Listings
	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/posts/:id/", s.PostDetail)
	app.Get("/follow/", s.FollowIndex)

	// Posts
	app.Get("/create/", s.CreatePostForm)
	app.Post("/create/", s.rateLimiter.Limit("create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)
	app.Get("/posts/:id/edit/", s.EditPostForm)
	app.Post("/posts/:id/edit/", s.EditPost)
	app.Post("/posts/:id/delete/", s.DeletePost)
	app.Post("/posts/:id/comment", s.rateLimiter.Limit("create_comment", 10, time.Minute, middleware.FailOpen), s.AddComment)

	// Follows
	app.Get("/profile/:username/follow/", s.FollowAuthor)
	app.Post("/profile/:username/follow/", s.FollowAuthor)
	app.Get("/profile/:username/unfollow/", s.UnfollowAuthor)
	app.Post("/profile/:username/unfollow/", s.UnfollowAuthor)

	// Identity
	authGroup := app.Group("/auth")
	authGroup.Post("/signup/", s.rateLimiter.Limit("signup", 3, 10*time.Minute, middleware.FailOpen), s.Signup)
	authGroup.Post("/login/", s.rateLimiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	authGroup.Post("/logout/", s.Logout)

	// Administration
	admin := app.Group("/admin")
	admin.Post("/groups", s.CreateGroup)
	admin.Delete("/groups/:id", s.DeleteGroup)
	admin.Delete("/users/:id", s.DeleteUser)

	// Static pages
	app.Get("/about/author/", s.AboutAuthor)
	app.Get("/about/tech/", s.AboutTech)

	if s.hub != nil {
		app.Use("/ws", s.WebSocketUpgrade)
		app.Get("/ws/feed", s.WebSocketFeedHandler())
	}

	app.Use(s.NotFound)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it the page cache runs in process and the live feed is off.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "inkwell",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database":  dbStatus,
			"redis":     redisStatus,
			"live_feed": s.hub != nil,
		},
		"time": time.Now(),
	})
}

// NotFound answers every request no route matched.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: "Page not found",
		Code:  models.CodeNotFound,
	})
}

// Start serves HTTP on the configured port and forwards post events to the
// live feed hub until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start live feed wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes live connections. The runtime
// owns the database and Redis clients and closes them separately.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down live feed", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
