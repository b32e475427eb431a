/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the care-hours balance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, then environment)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Build the balance aggregator, optionally behind the Redis cache
  5. Create API handler and report scheduler
  6. Configure HTTP router
  7. Start server with graceful shutdown

ENVIRONMENT:
  SERVER_PORT                        HTTP port (default: 8080)
  DATABASE_PATH                      SQLite path (default: care-hours.db)
                                     Use ":memory:" for in-memory database
  REDIS_ADDR                         Enables the balance cache when set
  BALANCE_INCLUDE_ALWAYS_APPLICABLE  Count flexible/completa/personalizada
  SCHEDULER_ENABLED                  Run the monthly shortfall reports
  LOG_LEVEL, LOG_FORMAT              zap level and encoding

  See config/config.go for the full list.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the report scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (SERVER_SHUTDOWN_TIMEOUT)
  4. Close Redis and database connections
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/care-hours/api"
	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/cache"
	"github.com/warp/care-hours/config"
	"github.com/warp/care-hours/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	metrics := api.NewMetrics()

	agg := balance.NewAggregator(store, balance.Options{
		IncludeAlwaysApplicable: cfg.Balance.IncludeAlwaysApplicable,
		Concurrency:             cfg.Balance.Concurrency,
		Locale:                  cfg.Balance.Locale,
	}, logger).WithRecorder(metrics)

	// Redis is optional; without it every request hits SQLite.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.DialTimeout)*time.Second)
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, running without balance cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	balances := cache.NewBalanceCache(agg, redisClient, cfg.Redis.TTLDuration(), logger)

	// Initialize handler
	handler := api.NewHandler(store, balances, logger)
	handler.Cache = balances

	// Report scheduler
	scheduler := api.NewReportScheduler(store, balances, api.LogNotifier{Logger: logger}, logger)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.SchedulerInterval()
	handler.Scheduler = scheduler
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler, metrics, cfg.Server.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Environment),
			zap.Bool("cache", redisClient != nil),
			zap.Bool("scheduler", cfg.Scheduler.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
