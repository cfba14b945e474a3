// Package finalize handles the finalize command
package finalize

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the finalize command
var Cmd = &cobra.Command{
	Use:   "finalize",
	Short: "Export a fully categorized session",
	Long: `Export the income and expense lists to the configured target and delete the
session. When the export fails the session is kept and finalize can be retried.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			return common.Finalize(ctx, c, user, cmd.OutOrStdout())
		})
	},
}
