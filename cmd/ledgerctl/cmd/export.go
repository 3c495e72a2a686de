package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/config"
	"ledger/internal/export"
	"ledger/internal/services"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		year, month int
		format, out string
	)
	c := &cobra.Command{
		Use:   "export",
		Short: "Write a month of entries as CSV or XLSX",
		Long: `Write a month of entries to a file. The default file name is
expenses_<year>_<MM>.<format> in the current directory; --out - writes to stdout.`,
		Example: `  ledgerctl export --year 2026 --month 3
  ledgerctl export --format xlsx --out march.xlsx`,
		Args: cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			return withLedger(ctx, func(cfg *config.Config, ledger *services.LedgerService) error {
				art, err := ledger.ExportMonth(ctx, root.ownerFor(cfg), year, month, format)
				if err != nil {
					return err
				}
				if out == "-" {
					_, err := cmd.OutOrStdout().Write(art.Data)
					return err
				}
				path := out
				if path == "" {
					path = art.Filename
				}
				if err := os.WriteFile(path, art.Data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(art.Data))
				return nil
			})
		}),
	}
	monthFlags(c, &year, &month)
	c.Flags().StringVar(&format, "format", export.FormatCSV, "csv or xlsx")
	c.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return c
}
