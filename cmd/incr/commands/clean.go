package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [patterns...]",
		Short: "Invalidate cache entries",
		Long: "Without patterns, delete the cache index. With patterns, remove only\n" +
			"the entries whose ids match, so they are recomputed on the next pass.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, _ := cmd.Flags().GetBool("layout")
			all, _ := cmd.Flags().GetBool("all")

			return c.app.Clean(cmd.Context(), app.CleanOptions{
				Patterns: args,
				Layout:   layout,
				All:      all,
			})
		},
	}

	cmd.Flags().BoolP("layout", "l", false, "Clean the layout index instead of the file index")
	cmd.Flags().BoolP("all", "a", false, "Clean both the file and layout indexes")

	return cmd
}
