package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financeiro/internal/cashregister"
	"financeiro/internal/cli"
	"financeiro/internal/core"
	apphttp "financeiro/internal/http"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting financeiro", "port", cfg.Port, "log_level", cfg.LogLevel)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	amqpClient := cli.InitAMQP(logger, cfg)

	txService := services.NewTransactionService(repo, cli.Publisher(amqpClient))
	recurring := services.NewRecurringProcessor(repo, txService, cfg.RecurringMonthsAhead)

	// Sweep once on load so series are current before the first request.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	if res, err := recurring.ProcessAutoRecurring(startupCtx, core.DateOf(time.Now())); err != nil {
		logger.Error("Startup recurrence sweep failed", "error", err)
	} else {
		logger.Info("Startup recurrence sweep complete",
			"series", res.Series,
			"created", res.Created,
			"stopped", res.Stopped)
	}
	cancelStartup()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Transactions: txService,
		Suppliers:    services.NewSupplierService(repo),
		Dashboard:    services.NewDashboardService(repo, cfg.DashboardCacheTTL),
		Recurring:    recurring,
		Registers:    cashregister.NewService(repo),
		Ready:        repo.Ping,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := txService.Close(); err != nil {
			logger.Warn("Storage close error", "error", err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
