// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/contas, cmd/contas-worker, cmd/recurring-worker and cmd/contasctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contas/internal/backend"
	"contas/internal/backup"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level slog.Level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     level,
		Component: component,
		Format:    os.Getenv("LOG_FORMAT"),
		Writer:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Runtime is an opened backend plus the session over it.
type Runtime struct {
	Session *services.Session
	Backend *backend.BackendResult
}

// Close waits for pending writes and releases the backend.
func (rt *Runtime) Close(ctx context.Context) error {
	var flushErr error
	if rt.Session != nil {
		flushErr = rt.Session.Flush(ctx)
	}
	if rt.Backend != nil && rt.Backend.Cleanup != nil {
		if err := rt.Backend.Cleanup(); err != nil {
			return err
		}
	}
	return flushErr
}

// OpenSession creates the configured backend and loads a session over it.
func OpenSession(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	session, err := services.NewSession(services.Options{
		Payables:  result.Backend,
		Taxonomy:  result.Backend,
		Legacy:    backup.LegacyDir{Path: cfg.LegacyDir},
		Publisher: result.Publisher,
		Company:   cfg.Company(),
		Logger:    logger,
	})
	if err != nil {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return nil, err
	}
	if err := session.Load(ctx); err != nil {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Runtime{Session: session, Backend: result}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
