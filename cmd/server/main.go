/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the land-bank compliance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, config file, LANDBANK_* env and flags
  2. Set up structured logging
  3. Open the configured store (sqlite, postgres or memory)
  4. Create service, handler and router
  5. Start the queue scheduler when enabled
  6. Start server with graceful shutdown

FLAGS (each also settable as LANDBANK_<NAME>):
  --config              YAML config file
  --port                HTTP server port (default: 8080)
  --store               sqlite | postgres | memory (default: sqlite)
  --sqlite-path         SQLite database path (":memory:" for in-memory)
  --database-url        Postgres DSN
  --dev                 Text logs, debug level, demo scenario routes
  --scheduler-enabled   Record due-now snapshots on an interval
  --scheduler-interval  Snapshot interval (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - store/backend.go: Store selection
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/landbank/compliance-engine/api"
	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/config"
	"github.com/landbank/compliance-engine/logging"
	"github.com/landbank/compliance-engine/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "landbank-server",
		Short:         "Serve the land-bank compliance API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML config file")
	f.Int("port", 8080, "HTTP server port")
	f.String("store", config.StoreSQLite, "store backend (sqlite|postgres|memory)")
	f.String("sqlite-path", "./data/landbank.db", "SQLite database path")
	f.String("database-url", "", "Postgres DSN")
	f.Bool("dev", false, "development mode")
	f.Bool("scheduler-enabled", false, "record due-now snapshots on an interval")
	f.Duration("scheduler-interval", time.Hour, "snapshot interval")
	f.StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
	bindFlags(v, cmd)

	return cmd
}

// bindFlags maps dashed flag names onto underscored config keys so flags,
// env and config file agree.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, name := range []string{
		"port", "store", "sqlite-path", "database-url", "dev",
		"scheduler-enabled", "scheduler-interval", "allowed-origins",
	} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), cmd.Flags().Lookup(name))
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := logging.Setup(cfg.Dev)

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc := compliance.NewService(backend, logger)
	handler := api.NewHandler(svc, logger)
	handler.Runs = backend
	handler.StoreName = cfg.Store
	if cfg.Dev {
		handler.Scenarios = backend
	}

	scheduler := api.NewQueueScheduler(svc, backend, logger)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Interval = cfg.SchedulerInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.AllowedOrigins}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "store", cfg.Store, "dev", cfg.Dev)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
