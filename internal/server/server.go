// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "fambam/docs" // swagger docs
	"fambam/internal/cache"
	"fambam/internal/config"
	"fambam/internal/database"
	"fambam/internal/featureflags"
	"fambam/internal/identity"
	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/notifications"
	"fambam/internal/repository"
	"fambam/internal/service"
	"fambam/internal/storage"
	"fambam/internal/validation"

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

// bodyLimit fits four post images plus form overhead.
const bodyLimit = 48 << 20

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	identity     identity.Provider
	validator    *validation.Validator
	featureFlags *featureflags.Manager
	media        *storage.LocalStore

	notifier   *notifications.Notifier
	postHub    *notifications.PostHub
	syncBridge *notifications.SyncBridge

	mediaService     *service.MediaService
	postService      *service.PostService
	commentService   *service.CommentService
	reactionService  *service.ReactionService
	profileService   *service.ProfileService
	retentionService *service.RetentionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := storage.NewLocalStore(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	postRepo := repository.NewPostRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("fambam-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		identity:       identity.New(cfg, accountRepo, redisClient),
		validator:      validation.New(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		media:          store,
		notifier:       notifications.NewNotifier(redisClient),
		postHub:        notifications.NewPostHub(),
	}

	timeout := cfg.BackendTimeout()

	s.mediaService = service.NewMediaService(store)
	s.mediaService.SetTimeout(timeout)

	s.profileService = service.NewProfileService(profileRepo, s.mediaService, redisClient)
	s.profileService.SetTimeout(timeout)

	s.postService = service.NewPostService(postRepo, store, s.mediaService, s.profileService.IsAdmin, redisClient, s.notifier)
	s.postService.SetTimeout(timeout)

	s.commentService = service.NewCommentService(commentRepo, postRepo, s.notifier)
	s.commentService.SetTimeout(timeout)

	s.reactionService = service.NewReactionService(reactionRepo, postRepo, redisClient, s.notifier)
	s.reactionService.SetTimeout(timeout)
	s.reactionService.SetShowNames(s.featureFlags.Globally(featureflags.ReactionNames))

	s.retentionService = service.NewRetentionService(s.postService)
	s.syncBridge = notifications.NewSyncBridge(s.notifier, s.commentService, s.reactionService)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; media is embedded cross-origin by the frontend.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))

	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:4321,http://localhost:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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
	secure := s.config.IsProduction()
	authJSON := middleware.SessionAuth(s.identity, secure, middleware.DenyJSON)
	authForm := middleware.SessionAuth(s.identity, secure, middleware.DenyRedirect)
	optional := middleware.OptionalSession(s.identity, secure)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(strings.TrimSuffix(storage.MediaPrefix, "/"), s.media.Root(), fiber.Static{MaxAge: 86400})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "fambam metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Form-post auth routes
	auth := api.Group("/auth")
	auth.Post("/signin", s.rateLimit(middleware.Limit{Name: "signin", Max: 10, Window: 5 * time.Minute, Rejected: tooManyAttempts("/login")}), s.SignIn)
	auth.Post("/signup", s.rateLimit(middleware.Limit{Name: "signup", Max: 5, Window: 10 * time.Minute, Rejected: tooManyAttempts("/signup")}), s.SignUp)
	auth.Post("/signout", s.SignOut)

	// Posts
	api.Get("/posts", s.GetPosts)
	api.Post("/posts", authJSON, s.rateLimit(middleware.Limit{Name: "create_post", Max: 10, Window: time.Minute}), s.CreatePost)
	api.Post("/posts/:id/delete", authForm, s.DeletePostForm)

	api.Get("/posts/:id/comments", s.GetComments)
	api.Post("/posts/:id/comments", authJSON, s.rateLimit(middleware.Limit{Name: "create_comment", Max: 30, Window: time.Minute}), s.CreateComment)
	api.Delete("/posts/:id/comments/:commentId", authJSON, s.DeleteComment)

	api.Get("/posts/:id/reactions", optional, s.GetReactions)
	api.Post("/posts/:id/reactions", authJSON, s.SetReaction)

	// Profiles
	api.Get("/profiles/me", authJSON, s.GetMyProfile)
	api.Get("/profiles/:id/posts", s.GetProfilePosts)
	api.Get("/profiles/:id", s.GetProfile)
	api.Post("/profile/update", authForm, s.UpdateProfileForm)

	// Admin
	api.Post("/admin/cleanup-old-posts", authForm, s.AdminRequired(denyAdminForm), s.CleanupOldPosts)

	// Realtime sync for one post
	api.Get("/ws/posts/:id", authJSON, s.PostSyncUpgrade, s.PostSyncHandler())
}

// newApp builds the fiber app with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "fambam",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// rateLimit applies the Redis limiter in production only.
func (s *Server) rateLimit(l middleware.Limit) fiber.Handler {
	if !s.config.IsProduction() || s.redis == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(s.redis, l)
}

// tooManyAttempts sends a rate-limited form post back to its page.
func tooManyAttempts(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return redirectWith(c, path, "error", "Too many attempts, please try again later")
	}
}

// LivenessCheck reports that the process is serving.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis and lists the effective feature flags.
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

	// Redis only backs caching and realtime; the site works without it.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"features": s.featureFlags.Raw(),
		"time":     time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.newApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.postHub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down post hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
