// Command incr keeps derived results of project files up to date.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/cmd/incr/commands"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	_ "go.trai.ch/incr/internal/wiring"
)

// loader resolves the application components.
type loader func(context.Context) (*app.Components, error)

func fromGraph(ctx context.Context) (*app.Components, error) {
	c, _, err := graft.ExecuteFor[*app.Components](ctx)
	return c, err
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, fromGraph))
}

func run(ctx context.Context, args []string, stderr io.Writer, load loader) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	a := c.App.WithOutput(os.Stdout, stderr)
	defer func() { _ = a.Close() }()

	root := commands.New(a)
	root.SetArgs(args)
	root.SetOutput(os.Stdout, stderr)
	return exitCode(root.Execute(ctx), c.Logger)
}

// exitCode maps the command result to a process status. Per-item failures
// are already on the progress output, so only other errors are logged.
func exitCode(err error, log ports.Logger) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrProcessFailed):
		return 1
	default:
		log.Error(err)
		return 1
	}
}
