// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/budgetbook and cmd/budgetbook-worker.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetbook/internal/amqp"
	"budgetbook/internal/config"
	"budgetbook/internal/log"
	"budgetbook/internal/storage"
)

// ShutdownTimeout bounds how long in-flight work may take after a signal.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration and builds the process logger at the
// configured level, installed as the slog default. The process exits when
// validation fails.
func LoadConfig(component string) (*config.Config, *log.Logger) {
	cfg := config.Load()

	// an invalid level is reported by Validate below
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: component, Output: os.Stdout})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the ledger database and runs migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.SQLiteBusyTimeout)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// InitAMQP connects to the broker.
// Returns the client or exits the process on failure.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Server is the part of *http.Server that Serve drives.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Serve runs srv until ctx is cancelled or the listener fails, then shuts it
// down within timeout.
func Serve(ctx context.Context, logger *log.Logger, srv Server, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}
