package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/worker"
)

const (
	statsInterval    = time.Minute
	reconnectBackoff = 5 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting fintrack-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume ledger events")
		os.Exit(1)
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker is using the in-memory store, it cannot see entries written by the server")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid ledger time zone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	// The worker only consumes, so the backend is built without a publisher.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	engine := report.NewEngine(res.Store, report.WithLocation(loc))
	watcher := worker.NewBudgetWatcher(res.Store, engine, float64(cfg.BudgetAlertThreshold), logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
		stats := watcher.Stats()
		logger.Info("Worker stopped",
			"processed", stats.Processed,
			"skipped", stats.Skipped,
			"alerts", stats.Alerts)
	})
	ctx = log.NewContext(ctx, logger)

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := watcher.Stats()
				logger.Info("Worker stats",
					"processed", stats.Processed,
					"skipped", stats.Skipped,
					"alerts", stats.Alerts)
			}
		}
	}()

	logger.Info("Consuming ledger events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPRoutingKey,
		"threshold", cfg.BudgetAlertThreshold)
	for {
		err := amqpClient.Consume(ctx, watcher.HandleEvent)
		if ctx.Err() != nil {
			break
		}
		logger.Error("Message consumption stopped, retrying", log.FieldError, err, "backoff", reconnectBackoff)
		select {
		case <-ctx.Done():
		case <-time.After(reconnectBackoff):
		}
	}

	cli.WaitForShutdown(ctx, done)
}
