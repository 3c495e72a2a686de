package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/notes"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(applog.ComponentApp, "info")
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(applog.ComponentApp, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run owns every resource so deferred cleanup happens before main exits.
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

	summaries, stopCache, err := cli.NewSummaryCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize summary cache: %w", err)
	}
	defer stopCache()

	// a nil *amqp.Client must not end up inside the interface
	var events services.EventPublisher
	if client := cli.NewEventClient(logger.Logger, cfg); client != nil {
		events = client
		defer client.Close()
	}

	ledger := services.NewLedgerService(res.Backend, summaries, events)
	saver := notes.NewSaver(res.Backend, cfg.NotesDebounce)

	opts := apphttp.Options{
		JWTSecret:    cfg.JWTSecret,
		DefaultOwner: cfg.DefaultOwner,
		Logger:       logger.WithComponent(applog.ComponentHTTP),
	}
	if p, ok := res.Backend.(apphttp.Pinger); ok {
		opts.Ready = p
	}
	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set, every request runs as the default owner", "owner", cfg.DefaultOwner)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, saver, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		// handlers are drained, nothing can schedule a note any more
		if err := saver.Flush(shutdownCtx); err != nil {
			logger.Error("Failed to flush pending notes", "error", err)
		}
		return nil
	})

	return g.Wait()
}
