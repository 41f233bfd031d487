package main

import (
	"context"
	"errors"
	"os"

	"budgetbook/internal/cli"
	"budgetbook/internal/log"
	"budgetbook/internal/services"
	"budgetbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadConfig(log.ComponentWorker)

	logger.Info("Starting budgetbook-worker")
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	client := cli.InitAMQP(logger, cfg)
	defer client.Close()

	// no summary cache: the worker must see what the server just committed
	alerts := worker.NewAlertWorker(repo, services.NewNotificationService(services.NewLedgerService(repo), repo))

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// On startup, re-evaluate open months in case events were missed
	logger.Info("Performing startup notification check...")
	if err := alerts.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup check", "error", err)
		// Don't exit - continue with normal operation
	}

	if err := client.ConsumeLedgerEvents(ctx, alerts.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
