// Package skip handles the skip command
package skip

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the skip command
var Cmd = &cobra.Command{
	Use:   "skip",
	Short: "Move the pending transaction to the end of the queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			if _, err := c.GetEngine().Skip(ctx, user); err != nil {
				return err
			}
			return common.PrintNext(ctx, cmd.OutOrStdout(), c, user)
		})
	},
}
