package main

import (
	"time"

	"github.com/robfig/cron/v3"

	"financeiro/internal/cashregister"
	"financeiro/internal/cli"
	"financeiro/internal/core"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentRecurrence)

	logger.Info("Starting recurring-worker",
		"recurring_schedule", cfg.RecurringSweepSchedule,
		"cash_register_schedule", cfg.CashRegisterSweepSchedule,
		"months_ahead", cfg.RecurringMonthsAhead)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	amqpClient := cli.InitAMQP(logger, cfg)

	txService := services.NewTransactionService(repo, cli.Publisher(amqpClient))
	processor := services.NewRecurringProcessor(repo, txService, cfg.RecurringMonthsAhead)
	registers := cashregister.NewService(repo)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	events := applog.NewStructuredLogger(logger)

	sweepRecurring := func() {
		res, err := processor.ProcessAutoRecurring(ctx, core.DateOf(time.Now()))
		if err != nil {
			events.LogError(ctx, "Recurrence sweep failed", err, applog.ComponentRecurrence, applog.OpSweep, nil)
			return
		}
		logger.Info("Recurrence sweep complete",
			"series", res.Series,
			"created", res.Created,
			"stopped", res.Stopped,
			"failed", res.Failed)
	}
	sweepRegisters := func() {
		rep, err := registers.Sweep(ctx, core.DateOf(time.Now()))
		if err != nil {
			events.LogError(ctx, "Cash register sweep failed", err, applog.ComponentCashRegister, applog.OpSweep, nil)
			return
		}
		logger.WithComponent(applog.ComponentCashRegister).Info("Cash register sweep complete",
			"stale_open", len(rep.StaleOpen),
			"today_open", rep.TodayOpen)
	}

	// SkipIfStillRunning keeps one sweep of each kind in flight at a time.
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(cfg.RecurringSweepSchedule, sweepRecurring); err != nil {
		logger.Error("Invalid recurring sweep schedule", "error", err)
		return
	}
	if _, err := c.AddFunc(cfg.CashRegisterSweepSchedule, sweepRegisters); err != nil {
		logger.Error("Invalid cash register sweep schedule", "error", err)
		return
	}

	logger.Info("Running initial sweeps...")
	sweepRecurring()
	sweepRegisters()

	c.Start()

	cli.WaitForShutdown(ctx, done)

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(25 * time.Second):
		logger.Warn("Timed out waiting for running sweeps")
	}
	if amqpClient != nil {
		_ = amqpClient.Close()
	}
	if err := txService.Close(); err != nil {
		logger.Warn("Storage close error", "error", err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
