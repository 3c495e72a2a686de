// Package cli provides common initialization for the ledger binaries:
// environment, logging, config, storage and the optional collaborators
// (summary cache, event client, spreadsheet mirror).
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	sheetsmem "ledger/internal/sheets/memory"
)

const summaryCacheSize = 512

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for component at the given level
// and installs it as the slog default.
func SetupLogger(component, level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend creates the storage backend selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// NewSummaryCache returns the month summary cache. For the in-process cache
// the manager owns expiry cleanup; the caller stops it on shutdown. The
// returned cleanup is never nil.
func NewSummaryCache(ctx context.Context, cfg *config.Config) (cache.Cache[core.Summary], func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		slog.InfoContext(ctx, "Using Redis summary cache", "component", "cache", "ttl", cfg.CacheTTL)
		return cache.NewRedisCache[core.Summary](client, cfg.CacheTTL), func() { _ = client.Close() }, nil
	default:
		lru := cache.NewLRUCache[core.Summary](summaryCacheSize, cfg.CacheTTL)
		mgr := cache.NewManager()
		mgr.Register(lru)
		mgr.StartCleanup(cfg.CacheTTL)
		return lru, mgr.Stop, nil
	}
}

// NewEventClient connects to the broker when AMQP_URL is set. A nil client
// means events are disabled.
func NewEventClient(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, entry events disabled")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// NewMonthPublisher returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process publisher otherwise.
func NewMonthPublisher(ctx context.Context, cfg *config.Config) (sheets.MonthPublisher, error) {
	if !cfg.SheetsEnabled() {
		slog.InfoContext(ctx, "No spreadsheet configured, exports kept in memory", "component", "sheets")
		return sheetsmem.New(), nil
	}
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetBase:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownContext bounds cleanup work after the main context is gone.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
