// Package next handles the next command
package next

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the next command
var Cmd = &cobra.Command{
	Use:   "next",
	Short: "Show the transaction awaiting a decision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			return common.PrintNext(ctx, cmd.OutOrStdout(), c, user)
		})
	},
}
