/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stipend engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment), then apply flags
  2. Initialize translations, logger and metrics
  3. Load the policy (defaults, or POLICY_FILE)
  4. Open the event store (SQLite, or in-memory when -db is empty)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides HTTP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for a throwaway SQLite database, "" for the
           map-backed store
  -locale  Default locale, "he" or "en" (overrides LOCALE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/kollel.db"
  ./server -db=":memory:" -locale=en
  POLICY_FILE=policy.json WORKING_DAYS=20 ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
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
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/api"
	"github.com/kollel/stipend-engine/config"
	"github.com/kollel/stipend-engine/factory"
	"github.com/kollel/stipend-engine/i18n"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/logger"
	"github.com/kollel/stipend-engine/metrics"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/kollel/stipend-engine/store/memory"
	"github.com/kollel/stipend-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path (empty: in-memory store)")
	locale := flag.String("locale", cfg.Locale, "Default locale (he, en)")
	flag.Parse()
	cfg.Port, cfg.Database.Path, cfg.Locale = *port, *dbPath, *locale

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := i18n.Init(cfg.Locale); err != nil {
		return fmt.Errorf("translations: %w", err)
	}
	m := metrics.New()

	policy := stipend.DefaultPolicy()
	if cfg.PolicyFile != "" {
		p, err := factory.NewPolicyFactory().ParsePolicyFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("policy %s: %w", cfg.PolicyFile, err)
		}
		policy = p
		log.Info("policy loaded", zap.String("file", cfg.PolicyFile))
	}
	engine, err := stipend.NewEngine(policy,
		stipend.WithLogger(log),
		stipend.WithLocale(cfg.Locale),
		stipend.WithRecorder(m),
	)
	if err != nil {
		return err
	}

	// Initialize store
	var store ingest.EventStore
	if cfg.Database.Path == "" {
		store = memory.NewMemory()
		log.Warn("no database path, events are kept in memory only")
	} else {
		db, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("database %s: %w", cfg.Database.Path, err)
		}
		defer db.Close()
		store = db.WithObserver(m)
	}

	handler := api.NewHandler(engine, store, cfg, log)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         log,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("locale", cfg.Locale),
			zap.Int("working_days_override", cfg.WorkingDays))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
