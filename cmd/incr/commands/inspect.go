package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index size and cumulative cache metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, _ := cmd.Flags().GetBool("layout")
			_, err := c.app.Stats(cmd.Context(), app.StatsOptions{Layout: layout})
			return err
		},
	}
	cmd.Flags().BoolP("layout", "l", false, "Read the layout index instead of the file index")
	return cmd
}

func (c *CLI) newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the cached entry of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			layout, _ := cmd.Flags().GetBool("layout")
			return c.app.Show(cmd.Context(), args[0], app.ShowOptions{Path: path, Layout: layout})
		},
	}
	cmd.Flags().StringP("path", "p", "", "Query the cached result with a gjson path, e.g. references.0")
	cmd.Flags().BoolP("layout", "l", false, "Read the layout index instead of the file index")
	return cmd
}
