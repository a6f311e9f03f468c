package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// Generated instances are announced to the sync worker over AMQP.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized, generated records will sync via sync-worker")
		}
	} else {
		logger.Info("AMQP disabled, generated records stay pending until swept")
	}

	generator := services.NewSeriesGenerator(repo, cfg.HorizonDefault)
	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	service := services.NewLedgerService(repo, repo, generator, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring series processor configured",
		"interval", cfg.GenerateInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.GenerateInterval)
	defer ticker.Stop()

	// Run initial processing on startup.
	logger.Info("Running initial recurring series materialization...")
	if written, err := service.GenerateDue(ctx, core.DateOf(time.Now())); err != nil {
		logger.Error("Initial materialization failed", "error", err)
	} else {
		logger.Info("Initial materialization complete", "records_created", len(written))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Materializing due recurring series...")
				written, err := service.GenerateDue(ctx, core.DateOf(now))
				if err != nil {
					logger.Error("Periodic materialization failed", "error", err)
				} else {
					logger.Info("Periodic materialization complete",
						"records_created", len(written),
						"next_check", now.Add(cfg.GenerateInterval).Format("15:04:05"))
				}
			}
		}
	}()

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

	time.Sleep(2 * time.Second)
	logger.Info("Recurring-worker shutdown complete")
}
