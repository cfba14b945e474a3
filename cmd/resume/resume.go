// Package resume handles the resume command
package resume

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the resume command
var Cmd = &cobra.Command{
	Use:     "resume",
	Aliases: []string{"run"},
	Short:   "Continue a session interactively",
	Long: `Reactivate a paused session and prompt for each pending transaction. Type a
category, s to skip or q to pause again. The session is exported once every
transaction has a category.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			if err := c.GetEngine().Resume(ctx, user); err != nil {
				return err
			}
			return common.Interactive(ctx, c, user, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}
