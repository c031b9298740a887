package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	openai "github.com/sashabaranov/go-openai"

	httpAdapter "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http"
	mw "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http/middleware"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/primary/websocket"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/secondary/email"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/secondary/memory"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/secondary/postgres"
	"github.com/civicgrid/civic-issues-backend/internal/auth"
	"github.com/civicgrid/civic-issues-backend/internal/config"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
	"github.com/civicgrid/civic-issues-backend/internal/core/services"
	"github.com/civicgrid/civic-issues-backend/internal/infrastructure/logging"
	"github.com/civicgrid/civic-issues-backend/internal/jobs"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"storage_driver", cfg.Storage.Driver,
	)

	// 3. Initialize Storage (Secondary Adapters)
	ctx := context.Background()

	var (
		issueRepo     ports.IssueRepository
		userRepo      ports.UserRepository
		healthChecker httpAdapter.HealthChecker
	)

	switch cfg.Storage.Driver {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}

		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
		poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		issueRepo = postgres.NewIssueRepository(pool)
		userRepo = postgres.NewUserRepository(pool)
		healthChecker = pool

	case "memory":
		logger.Warn("using in-memory storage, all data is lost on restart")
		issueStore := memory.NewIssueStore()
		issueRepo = issueStore
		userRepo = memory.NewUserStore()
		healthChecker = issueStore
	}

	// Refresh tokens are ephemeral and live in memory for both drivers.
	tokenStore := memory.NewTokenStore()

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifierWithLogger(userRepo, logger)

	// AI categorizer falls back to keywords when no API key is set.
	var chatClient services.ChatCompleter
	if cfg.OpenAI.APIKey != "" {
		chatClient = openai.NewClient(cfg.OpenAI.APIKey)
	}

	// Services (Core)
	authzService := services.NewAuthorizationService(userRepo)
	authService := services.NewAuthService(userRepo, tokenStore, cfg.JWT.RefreshTokenTTL)
	categorizer := services.NewCategorizeService(chatClient, logger)
	issueService := services.NewIssueService(issueRepo, authzService, categorizer, notifier, hub)
	analyticsService := services.NewAnalyticsService(issueRepo, userRepo, authzService)

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger)
	issueHandler := httpAdapter.NewIssueHandler(issueService, errorHandler, logger)
	analyticsHandler := httpAdapter.NewAnalyticsHandler(analyticsService, cfg.Analytics.HotspotRadiusKm, errorHandler, logger)
	publicHandler := httpAdapter.NewPublicHandler(analyticsService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(healthChecker, cfg.App.Version)

	// Background Jobs
	var jobRunner *jobs.Runner
	if cfg.Jobs.Enabled {
		jobRunner, err = jobs.NewRunner(jobs.Config{
			DigestSchedule: cfg.Jobs.DigestSchedule,
			SweepSchedule:  cfg.Jobs.SweepSchedule,
		}, analyticsService, hub, tokenStore, logger)
		if err != nil {
			logger.Error("failed to schedule background jobs", "error", err)
			os.Exit(1)
		}
		jobRunner.Start()
	}

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Route("/auth", authHandler.RegisterRoutes)
		})

		// Anonymized public stats, no authentication
		r.Route("/public", publicHandler.RegisterRoutes)

		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/issues", issueHandler.RegisterRoutes)
			r.Route("/analytics", analyticsHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	if jobRunner != nil {
		jobRunner.Stop()
	}

	// Wait for in-flight notification goroutines
	issueService.Shutdown()

	logger.Info("server shutdown complete")
}
