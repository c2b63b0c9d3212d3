// Package commands implements the CLI commands for the incr cache tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/build"
	"go.trai.ch/incr/internal/core/domain"
)

// CLI represents the command line interface for incr.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Configure(opts app.GlobalOptions)
	Build(ctx context.Context, opts app.BuildOptions) (*domain.Report, error)
	Layout(ctx context.Context, treePath string, opts app.BuildOptions) (*domain.Report, error)
	Watch(ctx context.Context, opts app.BuildOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
	Stats(ctx context.Context, opts app.StatsOptions) (*app.Stats, error)
	Show(ctx context.Context, id string, opts app.ShowOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "incr",
		Short:         "An incremental dependency cache for files and layout trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to incr.yaml (default: search upwards from the working directory)")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	flags.String("log-file", "", "Write a debug log to this file; empty disables it")
	flags.BoolP("verbose", "v", false, "Show debug output")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		c.app.Configure(globalOptions(cmd))
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newLayoutCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newStatsCmd())
	rootCmd.AddCommand(c.newShowCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func globalOptions(cmd *cobra.Command) app.GlobalOptions {
	configPath, _ := cmd.Flags().GetString("config")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts := app.GlobalOptions{
		ConfigPath: configPath,
		JSONLogs:   jsonLogs,
		Verbose:    verbose,
	}
	if cmd.Flags().Changed("log-file") {
		logFile, _ := cmd.Flags().GetString("log-file")
		opts.LogFile = &logFile
	}
	return opts
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
