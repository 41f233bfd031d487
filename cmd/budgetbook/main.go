package main

import (
	"os"

	"budgetbook/internal/cache"
	"budgetbook/internal/cli"
	"budgetbook/internal/config"
	"budgetbook/internal/core"
	apphttp "budgetbook/internal/http"
	"budgetbook/internal/log"
	"budgetbook/internal/services"
	"budgetbook/internal/worker"
)

const summaryCacheSize = 1024

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadConfig(log.ComponentApp)

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		logger.Error("Failed to load site params", "error", err, "path", cfg.ParamsFile)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	// Ledger events go to the broker when configured; otherwise the alert
	// worker runs in-process.
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client := cli.InitAMQP(logger, cfg)
		defer client.Close()
		publisher = client
	} else {
		alerts := worker.NewAlertWorker(repo, services.NewNotificationService(services.NewLedgerService(repo), repo))
		publisher = worker.NewLocalPublisher(alerts)
		logger.Info("AMQP disabled, evaluating notifications in-process")
	}

	caches := cache.NewManager()
	defer caches.Stop()
	opts := []services.Option{services.WithPublisher(publisher)}
	if cfg.SummaryCacheTTL > 0 {
		summaries := cache.NewLRUCache[core.Summary](summaryCacheSize, cfg.SummaryCacheTTL)
		caches.Register(summaries)
		caches.StartCleanup(cfg.SummaryCacheTTL)
		opts = append(opts, services.WithSummaryCache(summaries))
	}

	ledger := services.NewLedgerService(repo, opts...)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LoginRateLimit:     cfg.LoginRateLimit,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Deps{
		Ledger:        ledger,
		Accounts:      services.NewAccountService(repo),
		Notifications: services.NewNotificationService(ledger, repo),
		Store:         repo,
		Sessions:      apphttp.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		Params:        params,
		Logger:        logger,
	})

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting budgetbook server", "port", cfg.Port, "amqp", cfg.AMQPEnabled())
	if err := cli.Serve(ctx, logger, srv, cli.ShutdownTimeout); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
