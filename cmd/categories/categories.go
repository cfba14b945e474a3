// Package categories handles the categories command
package categories

import (
	"context"
	"fmt"
	"io"

	"fjacquet/txsort/cmd/common"
	"fjacquet/txsort/internal/container"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/store"

	"github.com/spf13/cobra"
)

// InitFile receives a copy of the built-in rules when set.
var InitFile string

// Cmd represents the categories command
var Cmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories and where the rules come from",
	Long: `List expense and income categories in declaration order. With --init the
built-in rules are written to a file that can then be edited.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.WithContainer(cmd, func(_ context.Context, c *container.Container, _ string) error {
			out := cmd.OutOrStdout()
			if InitFile != "" {
				cfg, err := store.DefaultRules()
				if err != nil {
					return err
				}
				if err := c.GetRuleStore().Save(InitFile, cfg); err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "Built-in rules written to %s.\n", InitFile)
				return err
			}
			return list(out, c)
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&InitFile, "init", "", "Write the built-in rules to this file")
}

func list(out io.Writer, c *container.Container) error {
	taxonomy := c.GetRules().Taxonomy()
	fmt.Fprintf(out, "Rules: %s\n", c.RulesSource())
	for _, p := range []models.Polarity{models.PolarityExpense, models.PolarityIncome} {
		fmt.Fprintf(out, "\n%s:\n", p)
		for _, cat := range taxonomy.Categories(p) {
			marker := ""
			if cat.Default {
				marker = " (default)"
			}
			fmt.Fprintf(out, "  %-24s %s%s\n", cat.Code, cat.Label, marker)
		}
	}
	return nil
}
