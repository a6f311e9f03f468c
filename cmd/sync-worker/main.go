package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/export"
	applog "saldo/internal/log"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting sync-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Spreadsheet export target. Without a spreadsheet id the worker has
	// nothing to write to, so it refuses to start.
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the sync worker")
		os.Exit(1)
	}
	exporter, err := export.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize spreadsheet client", "error", err)
		os.Exit(1)
	}
	logger.Info("Spreadsheet client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, exporter, exporter, cfg.SyncBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain anything that piled up while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := amqpClient.ConsumeMessages(ctx, syncWorker.HandleSyncMessage, syncWorker.HandleDeleteMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic sweep for records stuck in pending state, the backup for
	// lost AMQP messages.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				} else if n > 0 {
					logger.Info("Periodic sync complete", "records_synced", n)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		logger.Error("Sync worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Sync-worker shutdown complete")
}
