// Package cleanup removes expired pending confirmations.
package cleanup

import (
	"context"
	"fmt"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the cleanup command
var Cmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired pending confirmations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.RunWithContainer(cmd, nil, func(ctx context.Context, c *container.Container) error {
			removed, err := c.GetStore().CleanupExpiredPending(ctx)
			if err != nil {
				return fmt.Errorf("error cleaning up pending confirmations: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d expired pending confirmation(s).\n", removed)
			return nil
		})
	},
}
