// Package handle runs one chat message through the confirmation workflow.
package handle

import (
	"context"
	"fmt"
	"strings"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/config"
	"clawback/clawback/internal/container"

	"github.com/spf13/cobra"
)

var (
	sheetsAccount string
	noSheets      bool
)

// Cmd represents the handle command
var Cmd = &cobra.Command{
	Use:   "handle CHAT_ID MESSAGE...",
	Short: "Handle one chat message and print the reply",
	Long: `Handle one chat message the way the bot would: parse it, ask for or
apply a confirmation, and print the reply text.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID := args[0]
		message := strings.Join(args[1:], " ")

		adjust := func(cfg *config.Config) {
			if noSheets {
				cfg.Sheets.Enabled = false
			}
			if sheetsAccount != "" {
				cfg.Sheets.Account = sheetsAccount
			}
		}

		return common.RunWithContainer(cmd, adjust, func(ctx context.Context, c *container.Container) error {
			reply := c.GetHandler().HandleMessage(ctx, chatID, message)
			if reply != "" {
				fmt.Fprintln(cmd.OutOrStdout(), reply)
			}
			return nil
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&sheetsAccount, "sheets-account", "", "Google account used for sheet sync")
	Cmd.Flags().BoolVar(&noSheets, "no-sheets", false, "Disable Google Sheets sync")
}
