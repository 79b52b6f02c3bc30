// Package server contains the HTTP and WebSocket handlers of the feed API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "feedhub/docs" // swagger docs
	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/repository"
	"feedhub/internal/service"
	"feedhub/internal/storage"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	images         storage.ImageStore
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	broadcaster    *notifications.Fanout
	authService    *service.AuthService
	postService    *service.PostService
}

// NewServer connects to the database, Redis and the image store and builds
// the server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	images, err := NewImageStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("image store setup failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, images)
}

// NewImageStore builds the image backend selected by IMAGE_STORAGE.
func NewImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStorage {
	case "s3":
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return storage.Instrumented{ImageStore: s3}, nil
	default:
		local, err := storage.NewLocalStore(cfg.ImageDir)
		if err != nil {
			return nil, err
		}
		return storage.Instrumented{ImageStore: local}, nil
	}
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs without cache, rate limiting
// and cross-instance fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageStore) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if images == nil {
		return nil, errors.New("image store is required")
	}
	cache.SetClient(redisClient)
	models.SetProduction(cfg.IsProduction())
	middleware.EnforceRateLimits(cfg.RateLimitsEnabled())

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("feedhub-api"),
		userRepo:       userRepo,
		postRepo:       postRepo,
		images:         images,
		hub:            notifications.NewHub(notifications.DefaultMaxConns),
	}

	// With Redis every instance publishes there and its hub picks events up
	// through StartWiring; without it events go straight to the local hub.
	var sinks []notifications.Sink
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		sinks = append(sinks, s.notifier)
	} else {
		sinks = append(sinks, s.hub)
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		sinks = append(sinks, notifications.NewKafkaSink(brokers, cfg.KafkaTopic))
	}
	s.broadcaster = notifications.NewFanout(sinks...)
	notifications.Init(s.broadcaster)

	s.authService = service.NewAuthService(userRepo, service.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	s.postService = service.NewPostService(postRepo, userRepo, images, cfg.MaxUploadBytes)

	middleware.Logger.Info("server initialized",
		slog.String("db_driver", cfg.DBDriver),
		slog.String("image_backend", images.Backend()),
		slog.Bool("redis", redisClient != nil),
		slog.Any("event_sinks", s.broadcaster.Sinks()))
	return s, nil
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Feedhub API",
		BodyLimit:    s.config.MaxUploadBytes + 1<<20,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorHandler: ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// ErrorHandler renders every error returned by a handler or middleware as
// the standard error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{EnableStackTrace: !s.config.IsProduction()}))
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Images are embedded by a frontend on another origin.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.allowedOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !isWildcard(origins),
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || unlimitedPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/monitor", monitor.New(monitor.Config{Title: "Feedhub Metrics"}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	if s.config.ImageStorage != "s3" {
		app.Static("/images", s.config.ImageDir, fiber.Static{ByteRange: true})
	}

	app.Use("/socket", websocketUpgradeRequired)
	app.Get("/socket", s.WebsocketHandler())

	auth := app.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/status", s.AuthRequired(), s.GetStatus)
	auth.Put("/status", s.AuthRequired(), s.UpdateStatus)

	feed := app.Group("/feed", s.AuthRequired())
	feed.Get("/posts", s.GetPosts)
	feed.Post("/post", s.CreatePost)
	feed.Get("/post/:postId", s.GetPost)
	feed.Put("/post/:postId", s.UpdatePost)
	feed.Delete("/post/:postId", s.DeletePost)
}

// AuthRequired returns the bearer-token middleware backed by the auth service.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.authService)
}

func (s *Server) allowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(s.config.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// unlimitedPath reports whether path is outside the per-IP API budget:
// image downloads, probes, metrics scrapes and socket upgrades.
func unlimitedPath(path string) bool {
	for _, prefix := range []string{"/images/", "/health/", "/socket", "/metrics", "/monitor"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
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
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the realtime hub and serves until the app is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start websocket wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown drains HTTP traffic, then closes the hub, the event sinks,
// Redis and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down websocket hub", slog.String("error", err.Error()))
	}

	notifications.Init(nil)
	if err := s.broadcaster.Close(); err != nil {
		middleware.Logger.Error("error closing event sinks", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
