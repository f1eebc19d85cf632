package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"contas/internal/cli"
	"contas/internal/log"
	"contas/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, log.ComponentRecurrence)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), log.ComponentRecurrence)

	logger.Info("Starting recurring-worker")

	rt, err := cli.OpenSession(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open session", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	processor := services.NewRecurringProcessor(rt.Session)
	interval := cfg.RecurringInterval
	logger.Info("Recurring payable processor configured",
		"interval", interval,
		"backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := rt.Close(ctx); err != nil {
			logger.Error("Failed to release backend", log.FieldError, err)
		}
	})

	logger.Info("Running initial recurring payable processing...")
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", log.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "payables_created", count)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDue(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", log.FieldError, err)
				continue
			}
			logger.Info("Periodic processing complete",
				"payables_created", count,
				"next_check", now.Add(interval).Format(time.DateTime))
		}
	}
}
