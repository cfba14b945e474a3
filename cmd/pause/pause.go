// Package pause handles the pause command
package pause

import (
	"context"
	"fmt"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the pause command
var Cmd = &cobra.Command{
	Use:   "pause",
	Short: "Park the session until it is resumed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			if err := c.GetEngine().Pause(ctx, user); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session paused.")
			return err
		})
	},
}
