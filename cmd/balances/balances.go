// Package balances prints the simplified debts of a trip.
package balances

import (
	"context"
	"fmt"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/container"
	"clawback/clawback/internal/currencyutils"
	"clawback/clawback/internal/handler"
	"clawback/clawback/internal/ledger"

	"github.com/spf13/cobra"
)

var displayCurrency string

// Cmd represents the balances command
var Cmd = &cobra.Command{
	Use:   "balances TRIP",
	Short: "Show who owes whom in a trip",
	Long: `Show the simplified list of payments that settles a trip.
Amounts are in the trip base currency unless --in names another one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.RunWithContainer(cmd, nil, func(ctx context.Context, c *container.Container) error {
			trip, err := common.LoadTrip(ctx, c, args[0])
			if err != nil {
				return err
			}

			currency := currencyutils.Normalize(displayCurrency)
			if currency == "" {
				currency = trip.BaseCurrency
			}

			debts, err := ledger.SimplifyTrip(ctx, trip, currency, c.GetConverter())
			if err != nil {
				return fmt.Errorf("error computing balances: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(debts) == 0 {
				fmt.Fprintln(out, "✨ All settled up!")
				return nil
			}
			fmt.Fprintf(out, "📊 %s Balances (%s):\n\n", trip.Name, currency)
			fmt.Fprintln(out, handler.FormatDebts(debts))
			return nil
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&displayCurrency, "in", "", "Display currency (default: trip base currency)")
}
