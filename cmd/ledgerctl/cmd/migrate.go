package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/storage"
)

func newMigrateCmd(_ *rootOptions) *cobra.Command {
	var statusOnly bool
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL schema migrations",
		Long: `Apply the embedded schema migrations to the SQLite or PostgreSQL
database selected by DATA_BACKEND. Other backends have no schema.`,
		Example: `  ledgerctl migrate
  ledgerctl migrate --status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}

			var dialect storage.Dialect
			var dsn string
			switch cfg.DataBackend {
			case "sqlite":
				dialect, dsn = storage.DialectSQLite, cfg.SQLiteDBPath
			case "postgres":
				dialect, dsn = storage.DialectPostgres, cfg.PostgresURL
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s backend has no schema to migrate\n", cfg.DataBackend)
				return nil
			}

			if !statusOnly {
				if err := storage.RunMigrations(dialect, dsn); err != nil {
					return err
				}
			}
			version, dirty, err := storage.MigrationVersion(dialect, dsn)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (dirty: %t)\n", dialect, version, dirty)
			return nil
		},
	}
	c.Flags().BoolVar(&statusOnly, "status", false, "only print the current schema version")
	return c
}
