// Package upload handles the upload command
package upload

import (
	"context"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/channel"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Cmd represents the upload command
var Cmd = &cobra.Command{
	Use:   "upload <file.csv|->",
	Short: "Add a bank CSV export to the session",
	Long: `Normalize a bank CSV export, categorize what the rules recognize and queue the
rest for a decision. A session is started when none exists; transactions
already known to the session are ignored. Use - to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			ch := channel.NewFile(args[0], cmd.OutOrStdout())
			if _, err := c.GetEngine().Ingest(ctx, user, ch); err != nil {
				return common.Reported(err)
			}
			return nil
		})
	},
}
