// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "harvestlog/docs" // swagger docs
	"harvestlog/internal/authz"
	"harvestlog/internal/cache"
	"harvestlog/internal/config"
	"harvestlog/internal/database"
	"harvestlog/internal/featureflags"
	"harvestlog/internal/middleware"
	"harvestlog/internal/models"
	"harvestlog/internal/repository"
	"harvestlog/internal/service"

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
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	userRepo        repository.UserRepository
	churchRepo      repository.ChurchRepository
	membershipRepo  repository.MembershipRepository
	requestRepo     repository.AccessRequestRepository
	soulRepo        repository.SoulRepository
	approvalLogRepo repository.ApprovalLogRepository
	resolver        *authz.Resolver
	featureFlags    *featureflags.Manager
	userService     *service.UserService
	churchService   *service.ChurchService
	approvalService *service.ApprovalService
	soulService     *service.SoulService
	reportService   *service.ReportService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	churchRepo := repository.NewChurchRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	requestRepo := repository.NewAccessRequestRepository(db)
	soulRepo := repository.NewSoulRepository(db)
	approvalLogRepo := repository.NewApprovalLogRepository(db)

	prom := middleware.InitMetrics("harvestlog-api")

	timeout := cfg.UpstreamTimeout()
	server := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  prom,
		userRepo:        userRepo,
		churchRepo:      churchRepo,
		membershipRepo:  membershipRepo,
		requestRepo:     requestRepo,
		soulRepo:        soulRepo,
		approvalLogRepo: approvalLogRepo,
		featureFlags:    featureflags.NewManager(cfg.FeatureFlags),
	}
	server.resolver = authz.NewResolver(service.NewAuthStore(userRepo, membershipRepo), timeout)
	server.userService = service.NewUserService(userRepo)
	server.churchService = service.NewChurchService(churchRepo, timeout)
	server.approvalService = service.NewApprovalService(requestRepo, membershipRepo, userRepo, churchRepo, approvalLogRepo, timeout)
	server.soulService = service.NewSoulService(soulRepo, timeout)
	server.reportService = service.NewReportService(soulRepo, approvalLogRepo, timeout)

	middleware.InitMiddleware(cfg)
	if redisClient != nil {
		// Logged-out tokens live on the blacklist until natural expiry.
		middleware.TokenRevokedFn = func(c *fiber.Ctx, jti string) bool {
			n, err := redisClient.Exists(c.Context(), "blacklist:"+jti).Result()
			return err == nil && n > 0
		}
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "HarvestLog Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, middleware.ScopeRegister), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, middleware.ScopeLogin), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)

	// Public church directory (needed for the onboarding request form)
	churches := api.Group("/churches")
	churches.Get("/", s.GetChurches)
	churches.Get("/:slug", s.GetChurchBySlug)

	// Protected routes. ContextMiddleware runs again after auth so the
	// resolved userID reaches the request context for logging and tracing.
	protected := api.Group("", middleware.AuthRequired, middleware.ContextMiddleware())

	// Profile
	me := protected.Group("/me")
	me.Get("/", s.GetMyProfile)
	me.Put("/", s.UpdateMyProfile)
	me.Get("/requests", s.GetMyAccessRequests)

	// Access requests
	requests := protected.Group("/requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, middleware.ScopeAccessRequest), s.CreateAccessRequest)
	requests.Get("/pending", s.GetPendingAccessRequests)
	requests.Post("/:id/approve", s.ApproveAccessRequest)
	requests.Post("/:id/reject", s.RejectAccessRequest)

	// Church management
	adminChurches := protected.Group("/churches")
	adminChurches.Post("/", s.CreateChurch)
	adminChurches.Get("/:id/branches", s.GetBranches)
	adminChurches.Post("/:id/branches", s.CreateBranch)
	adminChurches.Get("/:id/souls", s.GetChurchSouls)
	adminChurches.Get("/:id/souls/export", s.ExportChurchSouls)
	adminChurches.Get("/:id/leaderboard", s.GetLeaderboard)
	adminChurches.Get("/:id/leaderboard/export", s.ExportLeaderboard)
	adminChurches.Get("/:id/evangelists", s.GetEvangelists)

	// Soul records
	souls := protected.Group("/souls")
	souls.Post("/", middleware.RateLimit(
		s.redis, 30, time.Minute, middleware.ScopeLogSoul), s.LogSoul)
	souls.Get("/me", s.GetMySouls)
	souls.Put("/:id", s.UpdateSoul)
	souls.Delete("/:id", s.DeleteSoul)

	// Admin routes
	admin := protected.Group("/admin")
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/evangelists/:id/approve", s.ApproveEvangelist)
	admin.Post("/evangelists/:id/unapprove", s.UnapproveEvangelist)
	admin.Put("/evangelists/:id/branch", s.SetEvangelistBranch)
	admin.Delete("/evangelists/:id/membership", s.RemoveEvangelist)
	admin.Get("/audit", s.GetAuditTrail)
	admin.Get("/audit/export", s.ExportAuditTrail)
	admin.Post("/users/:id/promote", s.PromotePlatformAdmin)
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "HarvestLog",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Evaluated feature flags for the current admin.
// @Tags admin
// @Produce json
// @Success 200 {object} object{flags=object,evaluated=object}
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}
	if !actor.IsAnyAdmin() {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("admin access required"))
	}
	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(actor.UserID),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "HarvestLog API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
