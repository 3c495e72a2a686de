package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/config"
	"ledger/internal/services"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var year, month int
	c := &cobra.Command{
		Use:   "summary",
		Short: "Print month totals and expenses per category",
		Example: `  ledgerctl summary --year 2026 --month 3
  ledgerctl summary --owner alice`,
		Args: cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			return withLedger(ctx, func(cfg *config.Config, ledger *services.LedgerService) error {
				owner := root.ownerFor(cfg)
				sum, err := ledger.MonthSummary(ctx, owner, year, month)
				if err != nil {
					return err
				}
				cats, err := ledger.MonthCategories(ctx, owner, year, month)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintf(tw, "=== %s %04d-%02d ===\t\n", owner, year, month)
				fmt.Fprintf(tw, "Expenses\t%s\t\n", amount(sum.TotalExpense))
				fmt.Fprintf(tw, "Income\t%s\t\n", amount(sum.TotalIncome))
				fmt.Fprintf(tw, "Split pending\t%s\t\n", amount(sum.TotalSplitPending))
				fmt.Fprintf(tw, "Split received\t%s\t\n", amount(sum.TotalSplitReceived))
				fmt.Fprintf(tw, "Money in\t%s\t\n", amount(sum.MoneyIn()))
				fmt.Fprintf(tw, "Net expense\t%s\t\n", amount(sum.NetExpense))
				if len(cats) > 0 {
					fmt.Fprintln(tw, "\t\t")
					for _, ca := range cats {
						fmt.Fprintf(tw, "%s\t%s\t\n", ca.Category, amount(ca.Amount))
					}
				}
				return tw.Flush()
			})
		}),
	}
	monthFlags(c, &year, &month)
	return c
}

// amount prints d with at least two decimals and never fewer than it has.
func amount(d decimal.Decimal) string {
	return d.StringFixed(max(2, -d.Exponent()))
}
