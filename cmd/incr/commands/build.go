package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func addPassFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the cache and recompute every item")
	cmd.Flags().Bool("continue-on-error", true, "Keep processing after an item fails")
	cmd.Flags().IntP("parallelism", "j", 0, "Number of items computed concurrently (default: from config)")
	cmd.Flags().Int("flush-every", 0, "Save the index after this many computed items (default: from config)")
	cmd.Flags().Bool("json", false, "Print the pass report as JSON to stdout")
	cmd.Flags().BoolP("quiet", "q", false, "Hide cache hits from the progress output")
}

func passOptions(cmd *cobra.Command) app.BuildOptions {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	parallelism, _ := cmd.Flags().GetInt("parallelism")
	flushEvery, _ := cmd.Flags().GetInt("flush-every")
	jsonOut, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")

	opts := app.BuildOptions{
		NoCache:     noCache,
		Parallelism: parallelism,
		FlushEvery:  flushEvery,
		JSON:        jsonOut,
		Quiet:       quiet,
	}
	// Only an explicit flag overrides the configured policy.
	if cmd.Flags().Changed("continue-on-error") {
		continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
		opts.ContinueOnError = &continueOnError
	}
	return opts
}

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Process changed files and serve the rest from the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.app.Build(cmd.Context(), passOptions(cmd))
			return err
		},
	}
	addPassFlags(cmd)
	return cmd
}

func (c *CLI) newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <tree.yaml>",
		Short: "Measure a layout tree, recalculating only changed nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.Layout(cmd.Context(), args[0], passOptions(cmd))
			return err
		},
	}
	addPassFlags(cmd)
	return cmd
}

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Watch(cmd.Context(), passOptions(cmd))
		},
	}
	addPassFlags(cmd)
	return cmd
}
