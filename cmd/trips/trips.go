// Package trips lists the stored trips.
package trips

import (
	"context"
	"fmt"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the trips command
var Cmd = &cobra.Command{
	Use:   "trips",
	Short: "List trips",
	Long:  `List every trip with its base currency and number of expenses, oldest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.RunWithContainer(cmd, nil, func(ctx context.Context, c *container.Container) error {
			all, err := c.GetStore().LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("error loading trips: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No trips found.")
				return nil
			}
			fmt.Fprintln(out, "Trips:")
			for _, trip := range all {
				fmt.Fprintf(out, "  • %s (%s) - %d expenses\n", trip.Name, trip.BaseCurrency, len(trip.Expenses))
			}
			return nil
		})
	},
}
