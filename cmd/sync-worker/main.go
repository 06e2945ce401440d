package main

import (
	"context"
	"os"
	"time"

	"financeiro/internal/backend"
	"financeiro/internal/cli"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
	"financeiro/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting sync-worker", "ledger_backend", cfg.LedgerBackend)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ledgerCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid ledger configuration", "error", err)
		os.Exit(1)
	}
	ledger, err := backend.NewFactory(logger.WithComponent(applog.ComponentLedger)).CreateLedger(context.Background(), ledgerCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}

	processor := services.NewSyncProcessor(repo, ledger, ledger, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	syncWorker := worker.NewSyncWorker(processor)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor stop error", "error", err)
		}
	})

	logger.Info("Performing startup sync check...")
	syncWorker.StartupSyncCheck(ctx)

	// periodic pass picks up rows whose message was lost
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
		go func() {
			if err := syncWorker.Run(ctx, amqpClient); err != nil {
				applog.NewStructuredLogger(logger).LogError(ctx, "Message consumption failed", err,
					applog.ComponentAMQP, applog.OpSync, nil)
			}
		}()
	} else {
		logger.Info("No AMQP broker configured, relying on periodic sync only",
			"interval", cfg.SyncInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Sync-worker shutdown complete")
}
