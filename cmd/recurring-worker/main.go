package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo).WithComponent(log.ComponentWorker)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Initialize AMQP client for publishing ledger events
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized, ledger events will be published")
		}
	} else {
		logger.Info("AMQP disabled, ledger events will not be published")
	}

	scheduler := services.NewSchedulerService(repo)
	budgets := services.NewBudgetService(repo)

	var publisher worker.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	recurrenceWorker := worker.NewRecurrenceWorker(repo, scheduler, budgets, publisher, cfg.WorkerBatchSize, cfg.WorkerConcurrency)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurrence worker configured",
		"interval", cfg.WorkerInterval,
		"batch_size", cfg.WorkerBatchSize,
		"concurrency", cfg.WorkerConcurrency,
		"sqlite_db", cfg.SQLiteDBPath)

	// Setup periodic processing ticker
	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// Run initial pass on startup
	logger.Info("Running initial recurrence pass...")
	if count, err := recurrenceWorker.RunOnce(ctx, time.Now()); err != nil {
		logger.Error("Initial recurrence pass failed", log.FieldError, err)
	} else {
		logger.Info("Initial recurrence pass complete", "transactions_created", count)
	}

	// Start periodic processing
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := recurrenceWorker.RunOnce(ctx, now)
				if err != nil {
					logger.Error("Recurrence pass failed", log.FieldError, err)
				} else {
					logger.Info("Recurrence pass complete",
						"transactions_created", count,
						"next_check", now.Add(cfg.WorkerInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()

	logger.Info("Recurring-worker shutdown complete")
}
