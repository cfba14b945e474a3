// Package cancel handles the cancel command
package cancel

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"

	"github.com/spf13/cobra"
)

// Confirmed must be set for the session to be discarded.
var Confirmed bool

// Cmd represents the cancel command
var Cmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the session and everything categorized in it",
	Long: `Delete the session without exporting it. This also clears a session that can
no longer be read. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !Confirmed {
			return errors.New("refusing to discard the session without --yes")
		}
		return common.WithContainer(cmd, func(ctx context.Context, c *container.Container, user string) error {
			if err := c.GetEngine().Cancel(ctx, user); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Session of %s discarded.\n", user)
			return err
		})
	},
}

func init() {
	Cmd.Flags().BoolVarP(&Confirmed, "yes", "y", false, "Confirm that the session may be discarded")
}
