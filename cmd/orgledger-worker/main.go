package main

import (
	"context"
	"errors"
	"os"
	"time"

	"orgledger/internal/cli"
	"orgledger/internal/log"
	"orgledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting orgledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reconciler := worker.NewReconcileWorker(repo, logger)

	config := worker.DefaultSchedulerConfig()
	config.Schedule = cfg.ReconcileSchedule
	scheduler, err := worker.NewScheduler(reconciler.ReconcileAll, config, logger)
	if err != nil {
		logger.Error("Failed to create reconciliation scheduler", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Scheduler shutdown error", log.FieldError, err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start reconciliation scheduler", log.FieldError, err)
		os.Exit(1)
	}

	// Without a broker the scheduled passes are the only reconciliation.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
		go func() {
			err := amqpClient.ConsumeTransactionRecorded(ctx, reconciler.HandleTransactionRecorded)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
