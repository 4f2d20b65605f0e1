// Package export writes a trip to CSV files.
package export

import (
	"context"
	"fmt"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/container"

	"github.com/spf13/cobra"
)

var outputDir string

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export TRIP",
	Short: "Export a trip to CSV files",
	Long: `Export a trip's expenses, splits, settlements and balances as CSV files
into the output directory. The delimiter comes from export.delimiter.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.RunWithContainer(cmd, nil, func(ctx context.Context, c *container.Container) error {
			trip, err := common.LoadTrip(ctx, c, args[0])
			if err != nil {
				return err
			}

			written, err := c.GetExporter().ExportTrip(ctx, trip, outputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %s to %s:\n", trip.Name, outputDir)
			for _, path := range written {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		})
	},
}

func init() {
	Cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
}
