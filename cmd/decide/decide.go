// Package decide handles the decide command
package decide

import (
	"context"
	"fmt"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Note is the description stored with the decision.
var Note string

// Cmd represents the decide command
var Cmd = &cobra.Command{
	Use:   "decide <category>",
	Short: "Categorize the transaction awaiting a decision",
	Long: `Assign a category to the oldest pending transaction. The category may be given
by code, by label, through its shorthand or as a unique part of its label.
Without --note the counterparty is kept as description.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			result, err := c.GetEngine().Decide(ctx, user, args[0], Note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded, %d pending.\n", result.Remaining)
			return common.PrintNext(ctx, cmd.OutOrStdout(), c, user)
		})
	},
}

func init() {
	Cmd.Flags().StringVarP(&Note, "note", "n", "", "Description to store instead of the counterparty")
}
