// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

type rootOptions struct {
	envFile string
	debug   bool
	owner   string
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a personal ledger from the command line",
		Long: `ledgerctl reads the same environment as the ledger server and works
directly against its storage backend.

Example:
  ledgerctl summary --year 2026 --month 3
  ledgerctl export --year 2026 --month 3 --format xlsx
  ledgerctl token --owner alice
  ledgerctl migrate`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return fmt.Errorf("load %s: %w", opts.envFile, err)
				}
			} else {
				cli.LoadEnvFile()
			}
			level := "warn"
			if opts.debug {
				level = "debug"
			}
			logger := applog.New(applog.Config{
				Level:     applog.ParseLevel(level),
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			applog.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "environment file (default is .env)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "", "owner id (default is DEFAULT_OWNER)")

	root.AddCommand(newSummaryCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	return root
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) ownerFor(cfg *config.Config) string {
	if o.owner != "" {
		return o.owner
	}
	return cfg.DefaultOwner
}

// withLedger opens the configured backend, runs fn and closes the backend.
func withLedger(ctx context.Context, fn func(*config.Config, *services.LedgerService) error) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	res, err := cli.OpenBackend(ctx, nil, cfg)
	if err != nil {
		return err
	}
	defer func(res *backend.BackendResult) { _ = res.Cleanup() }(res)

	return fn(cfg, services.NewLedgerService(res.Backend, nil, nil))
}

// monthFlags registers --year and --month defaulting to the current month.
func monthFlags(c *cobra.Command, year, month *int) {
	now := time.Now()
	c.Flags().IntVar(year, "year", now.Year(), "year")
	c.Flags().IntVar(month, "month", int(now.Month()), "month (1-12)")
}

// wrap gives every subcommand a context cancelled on SIGINT or SIGTERM.
func wrap(run func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cli.SignalContext(slog.Default())
		defer cancel()
		return run(ctx, cmd, args)
	}
}
