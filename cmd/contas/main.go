package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"contas/internal/auth"
	"contas/internal/cli"
	"contas/internal/config"
	apphttp "contas/internal/http"
	"contas/internal/log"
	"contas/internal/middleware/security"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), log.ComponentApp)

	rt, err := cli.OpenSession(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open session", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := apphttp.Options{
		Session:     rt.Session,
		Logger:      logger.WithComponent(log.ComponentHTTP),
		CORSOrigins: cfg.CORSOrigins,
	}
	if repo := rt.Backend.Repository; repo != nil {
		opts.Ready = repo.Ping
		if version, dirty, err := repo.SchemaVersion(context.Background()); err != nil {
			logger.Warn("Could not read schema version", log.FieldError, err)
		} else {
			logger.Info("Database schema ready", "version", version, "dirty", dirty)
		}
	}
	if len(cfg.TrustedProxies) > 0 {
		detector := security.NewDetector()
		for _, cidr := range cfg.TrustedProxies {
			if err := detector.AddTrustedProxy(cidr); err != nil {
				logger.Error("Invalid trusted proxy", log.FieldError, err, "cidr", cidr)
				os.Exit(1)
			}
		}
		opts.Detector = detector
		opts.BehindProxy = true
	}

	provider, err := newAuthProvider(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize authentication", log.FieldError, err)
		os.Exit(1)
	}
	if provider != nil {
		opts.Auth = provider
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := rt.Close(ctx); err != nil {
			logger.Error("Failed to release backend", log.FieldError, err)
		}
	})

	logger.Info("Starting contas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth", cfg.AuthEnabled(),
		"company", cfg.CompanyName)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newAuthProvider returns nil when no admin account is configured.
func newAuthProvider(cfg *config.Config, logger *log.Logger) (*auth.Provider, error) {
	if !cfg.AuthEnabled() {
		logger.Warn("Authentication disabled - no ADMIN_EMAIL provided")
		return nil, nil
	}
	provider, err := auth.NewProvider(auth.Config{
		Secret:       []byte(cfg.JWTSecret),
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminPasswordHash,
		TTL:          cfg.SessionTTL,
	})
	if err != nil {
		return nil, err
	}
	authLog := logger.WithComponent(log.ComponentAuth)
	provider.Subscribe(func(ev auth.Event) {
		authLog.Info("Authentication state changed",
			"event", string(ev.Kind),
			"session_id", ev.SessionID)
	})
	return provider, nil
}
