// Package serve runs the chat webhook server.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clawback/clawback/cmd/common"
	"clawback/clawback/internal/config"
	"clawback/clawback/internal/container"
	"clawback/clawback/internal/server"

	"github.com/spf13/cobra"
)

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat webhook over HTTP",
	Long: `Serve the chat webhook. POST /messages takes {"chat_id": "...", "text": "..."}
and answers {"reply": "..."}. GET /trips lists trip names and GET /health is public.
Set server.token_hash (see "serve hash-token") to require a bearer token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		adjust := func(cfg *config.Config) {
			if addr != "" {
				cfg.Server.Addr = addr
			}
		}
		return common.RunWithContainer(cmd, adjust, func(ctx context.Context, c *container.Container) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.NewServer().ListenAndServe(ctx)
		})
	},
}

// HashTokenCmd prints the bcrypt hash to put in server.token_hash.
var HashTokenCmd = &cobra.Command{
	Use:               "hash-token TOKEN",
	Short:             "Hash a bearer token for server.token_hash",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := server.HashToken(args[0])
		if err != nil {
			return fmt.Errorf("error hashing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	Cmd.AddCommand(HashTokenCmd)
}
