/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars, optional .env) and parse flags
  2. Initialize logging
  3. Initialize SQLite store
  4. Connect the Redis result cache when REDIS_URL is set
  5. Create API handler and router
  6. Start the background ledger auditor
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. REDIS_URL is optional: without it statistics are
  recomputed on every request.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the auditor, close cache and database connections
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/stock.db"

  # Run with in-memory database and a cache
  REDIS_URL=redis://localhost:6379/0 ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - stats/service.go: Statistics service
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/stock-engine/api"
	"github.com/warp/stock-engine/config"
	"github.com/warp/stock-engine/stats"
	"github.com/warp/stock-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logger := config.NewLogger(cfg)

	// Initialize store
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to create database directory")
		}
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Statistics service, cached when Redis is configured
	svc := stats.NewService(store, store).
		WithTimeout(cfg.StatsTimeout).
		WithLogger(logger)

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := stats.ConnectRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			// Statistics still work without the cache.
			logger.Warn().Err(err).Msg("redis unavailable, statistics cache disabled")
		} else {
			defer client.Close()
			svc.WithCache(stats.NewRedisCache(client, cfg.CacheTTL))
			logger.Info().Dur("ttl", cfg.CacheTTL).Msg("statistics cache enabled")
		}
	}

	handler := api.NewHandler(store, svc)
	handler.Logger = logger
	router := api.NewRouter(handler, cfg.AllowedOrigins())

	auditor := api.NewLedgerAuditor(handler)
	auditor.CheckInterval = cfg.AuditInterval
	auditor.Start()
	defer auditor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StatsTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Int("port", cfg.Port).
			Str("env", cfg.Env).
			Str("db", cfg.DBPath).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server stopped")
}
