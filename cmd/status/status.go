// Package status handles the status command
package status

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the status command
var Cmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state and counts of the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			s, err := c.GetEngine().Status(ctx, user)
			if err != nil {
				return err
			}
			return common.PrintStatus(cmd.OutOrStdout(), user, s)
		})
	},
}
