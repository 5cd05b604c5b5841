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

	httpAdapter "github.com/lorrc/helpdesk-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/helpdesk-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/helpdesk-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/helpdesk-backend/internal/config"
	"github.com/lorrc/helpdesk-backend/internal/core/cache"
	"github.com/lorrc/helpdesk-backend/internal/core/services"
	"github.com/lorrc/helpdesk-backend/internal/infrastructure/logging"
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
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
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

	// 4. Real-time Hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 5. Rate Limiter
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	ticketRepo := postgres.NewTicketRepository(pool)
	slaConfigRepo := postgres.NewSLAConfigRepository(pool)
	slaHistoryRepo := postgres.NewSLAHistoryRepository(pool)
	cacheRepo := postgres.NewCacheRepository(pool)

	// Cache Layer
	tieredCache := cache.New(cacheRepo, logger)
	debouncer := cache.NewDebouncer()

	// Services (Core). The config service and the metrics layer reference
	// each other, so the invalidator is attached after construction.
	slaConfigService := services.NewSLAConfigService(slaConfigRepo, nil, logger)
	slaService := services.NewSLAService(slaConfigService, slaHistoryRepo, logger)
	metricsService := services.NewMetricsService(
		ticketRepo,
		slaService,
		tieredCache,
		debouncer,
		hub,
		services.MetricsServiceConfig{
			CacheTTL:     cfg.SLA.CacheTTL,
			DebounceWait: cfg.SLA.DebounceWait,
		},
		logger,
	)
	slaConfigService.SetInvalidator(metricsService)
	ticketService := services.NewTicketService(ticketRepo, slaService, metricsService, hub, logger)

	// Daily Scheduler
	triggerHour, triggerMinute, err := cfg.SLA.TriggerTime()
	if err != nil {
		logger.Error("invalid scheduler trigger", "error", err)
		os.Exit(1)
	}
	scheduler := services.NewScheduler(ticketRepo, slaService, metricsService, cacheRepo, services.SchedulerConfig{
		TickInterval:  cfg.SLA.SchedulerTick,
		TriggerHour:   triggerHour,
		TriggerMinute: triggerMinute,
	}, logger)
	if cfg.SLA.SchedulerEnabled {
		go scheduler.Run()
	}

	// Handlers (Primary Adapters)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, errorHandler, logger)
	metricsHandler := httpAdapter.NewMetricsHandler(metricsService, metricsService, logger)
	slaAdminHandler := httpAdapter.NewSLAAdminHandler(slaConfigService, scheduler, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version, logger)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHandler.ServeHTTP)
		r.Route("/tickets", ticketHandler.RegisterRoutes)
		r.Route("/metrics", metricsHandler.RegisterRoutes)
		r.Route("/sla", slaAdminHandler.RegisterRoutes)
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

	if cfg.SLA.SchedulerEnabled {
		scheduler.Stop()
	}

	logger.Info("server shutdown complete")
}
