package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

const exportConcurrency = 4

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(applog.ComponentWorker, "info")
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process, exports will be empty")
	}

	logger.Info("Starting ledger-worker")
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(logger.Logger)
	defer cancel()

	res, err := cli.OpenBackend(ctx, logger.Logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	publisher, err := cli.NewMonthPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize month publisher: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	// reads go straight to the store; the server owns the summary cache
	source := services.NewLedgerService(res.Backend, nil, nil)
	exporter := worker.NewExportWorker(source, publisher, worker.Config{
		FlushInterval: cfg.SyncInterval,
		BatchSize:     cfg.SyncBatchSize,
		Concurrency:   exportConcurrency,
	})
	if err := exporter.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeEntryEvents(gctx, exporter.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()

		logger.Info("Shutting down worker...", "pending_months", exporter.Pending())
		if err := exporter.Stop(shutdownCtx); err != nil {
			logger.Error("Final export flush failed", "error", err, "pending_months", exporter.Pending())
		}
		return nil
	})

	return g.Wait()
}
