package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/backend"
	"contas/internal/cli"
	"contas/internal/log"
	"contas/internal/services"
	gsheet "contas/internal/sheets/google"
	"contas/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), log.ComponentWorker)

	logger.Info("Starting contas-worker")

	if !cfg.MirrorEnabled() {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided, nothing to do")
		return
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The memory backend has no sync queue to drain.
	repo, err := backend.OpenRepository(bcfg)
	if err != nil {
		logger.Error("Failed to open repository", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := gsheet.Dial(context.Background(), cfg.GoogleSpreadsheetID, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, cfg.GoogleMirrorSheet)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleMirrorSheet)

	procCfg := services.DefaultSyncProcessorConfig()
	procCfg.BatchSize = cfg.SyncBatchSize
	procCfg.PollInterval = cfg.SyncInterval
	procCfg.Logger = logger
	processor := services.NewSyncProcessor(repo, mirror, procCfg)
	syncWorker := worker.NewSyncWorker(repo, mirror, processor)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Failed to stop sync processor", log.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on the sync queue", log.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumePayableChanges(gctx, func(ctx context.Context, msg *amqp.PayableChangeMessage) error {
					err := syncWorker.HandleChange(ctx, msg)
					if err != nil {
						// The change is queued too; let the drain loop retry it.
						processor.Trigger()
					}
					return err
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("AMQP disabled - changes reach the mirror through the sync queue only")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
}
