/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Sitebook wage engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment)
  2. Build zap logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the nightly recalculation scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  APP_PORT               HTTP server port (default: 8080)
  SQLITE_PATH            SQLite database path (default: sitebook.db)
                         Use ":memory:" for in-memory database
  CORS_ORIGINS           Allowed origins, comma separated
  RECALC_ENABLED         Nightly recalculation on/off (default: true)
  RECALC_CRON_SCHEDULE   Cron expression (default: "30 2 * * *")
  RECALC_WINDOW_DAYS     Trailing window length (default: 14)
  LOG_FORMAT             "json" or "console" (default: json)
  LOG_LEVEL              zap level name (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler, waiting for an in-flight run
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Nightly recalculation
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sitebook/wage-engine/api"
	"github.com/sitebook/wage-engine/config"
	"github.com/sitebook/wage-engine/logger"
	"github.com/sitebook/wage-engine/store/sqlite"
)

func main() {
	envFile := flag.String("env", "", "optional .env file path")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Initialize store
	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer st.Close()

	// Initialize handler
	handler := api.NewHandler(st, zl)
	handler.RecalcWindowDays = cfg.Recalc.WindowDays

	// Create router
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	// Nightly recalculation
	var scheduler *api.RecalcScheduler
	if cfg.Recalc.Enabled {
		scheduler, err = api.NewRecalcScheduler(handler, cfg.Recalc.CronSchedule, cfg.Recalc.WindowDays)
		if err != nil {
			zl.Fatal("failed to build scheduler", zap.Error(err))
		}
		scheduler.Start()
	}

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zl.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server stopped")
}
