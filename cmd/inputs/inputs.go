// Package inputs shows the most recent raw chat messages from the audit log.
package inputs

import (
	"context"
	"fmt"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/container"

	"github.com/spf13/cobra"
)

var limit int

// Cmd represents the inputs command
var Cmd = &cobra.Command{
	Use:   "inputs",
	Short: "Show recent raw messages from the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.RunWithContainer(cmd, nil, func(ctx context.Context, c *container.Container) error {
			entries, err := c.GetAuditor().Read(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No inputs logged.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s [%s] %s: %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.ParseStatus, e.ChatID, e.Input)
				if e.ErrorMsg != "" {
					line += " (" + e.ErrorMsg + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		})
	},
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
}
