// Package app implements the application layer for incr.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/incr/internal/adapters/extract"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/adapters/linear"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// logSettings is implemented by loggers whose output can be reconfigured at runtime.
type logSettings interface {
	SetJSON(enable bool)
	SetVerbose(enable bool)
	SetLogFile(path string)
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	opener       ports.StoreOpener
	walker       *fs.Walker
	extractors   *extract.Registry
	schedulers   *scheduler.Factory
	watchers     ports.WatcherFactory

	stdout io.Writer
	stderr io.Writer

	global     GlobalOptions
	configured bool
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	opener ports.StoreOpener,
	walker *fs.Walker,
	extractors *extract.Registry,
	schedulers *scheduler.Factory,
	watchers ports.WatcherFactory,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		opener:       opener,
		walker:       walker,
		extractors:   extractors,
		schedulers:   schedulers,
		watchers:     watchers,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithOutput redirects command output and progress reporting.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// GlobalOptions are the settings shared by every command.
type GlobalOptions struct {
	// ConfigPath selects an explicit incr.yaml instead of discovery.
	ConfigPath string
	JSONLogs   bool
	Verbose    bool
	// LogFile overrides the configured debug log when non-nil. An empty
	// string disables it.
	LogFile *string
}

// Configure applies the global options. Logging switches take effect at once;
// the configuration file is read lazily by the first command that needs it.
func (a *App) Configure(opts GlobalOptions) {
	a.global = opts
	a.configured = false
	if l, ok := a.logger.(logSettings); ok {
		l.SetJSON(opts.JSONLogs)
		l.SetVerbose(opts.Verbose)
	}
}

// Close releases the debug log file, if one is open.
func (a *App) Close() error {
	if c, ok := a.logger.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// loadConfig resolves the configuration and attaches the debug log it names.
func (a *App) loadConfig() (*domain.Config, error) {
	var (
		cfg *domain.Config
		err error
	)
	if a.global.ConfigPath != "" {
		cfg, err = a.configLoader.LoadFile(a.global.ConfigPath)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err != nil {
			return nil, zerr.Wrap(err, "failed to get working directory")
		}
		cfg, err = a.configLoader.Load(cwd)
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	if a.global.LogFile != nil {
		cfg.LogFile = *a.global.LogFile
	}
	if l, ok := a.logger.(logSettings); ok && !a.configured {
		l.SetLogFile(cfg.LogFile)
	}
	a.configured = true
	a.logger.Debug(fmt.Sprintf("using root %s", cfg.Root))

	return cfg, nil
}

// openStore binds a store to path and loads it. An unreadable index is
// reported and replaced by an empty one.
func (a *App) openStore(path string, compression domain.Compression) ports.CacheStore {
	store := a.opener.Open(path, compression)
	if err := store.Load(); err != nil {
		a.logger.Warn(fmt.Sprintf("cache index %s unreadable, starting cold: %v", path, err))
	}
	return store
}

// indexes returns the index paths a command addresses.
func indexes(cfg *domain.Config, layout, all bool) []string {
	switch {
	case all:
		return []string{cfg.Index, cfg.LayoutIndex}
	case layout:
		return []string{cfg.LayoutIndex}
	default:
		return []string{cfg.Index}
	}
}

// display shortens path relative to root for messages.
func display(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// union returns the ids of both lists, first-seen order, without duplicates.
func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// finish prints the report when requested and folds item failures into the error.
func (a *App) finish(report *domain.Report, err error, opts BuildOptions) (*domain.Report, error) {
	if report != nil && opts.JSON {
		data, jsonErr := json.MarshalIndent(report, "", "  ")
		if jsonErr != nil {
			return report, errors.Join(err, jsonErr)
		}
		_, _ = fmt.Fprintln(a.stdout, string(data))
	}
	if err != nil {
		return report, err
	}
	if report.Failed() {
		errs := make([]error, 0, len(report.Errors)+1)
		errs = append(errs, domain.ErrProcessFailed)
		for _, e := range report.Errors {
			errs = append(errs, e)
		}
		return report, errors.Join(errs...)
	}
	return report, nil
}

// BuildOptions configure a build, layout or watch pass. Zero values keep the
// configured setting.
type BuildOptions struct {
	NoCache         bool
	ContinueOnError *bool
	Parallelism     int
	FlushEvery      int
	// JSON prints the report to stdout.
	JSON bool
	// Quiet hides cache hits from the progress output.
	Quiet bool
}

func (o BuildOptions) apply(cfg *domain.Config) scheduler.Options {
	opts := scheduler.Options{
		ContinueOnError: cfg.ContinueOnError,
		NoCache:         o.NoCache,
		FlushEvery:      cfg.FlushEvery,
		Parallelism:     cfg.Parallelism,
	}
	if o.ContinueOnError != nil {
		opts.ContinueOnError = *o.ContinueOnError
	}
	if o.Parallelism > 0 {
		opts.Parallelism = o.Parallelism
	}
	if o.FlushEvery > 0 {
		opts.FlushEvery = o.FlushEvery
	}
	return opts
}

func (a *App) reporter(opts BuildOptions) ports.Reporter {
	return linear.NewReporter(a.stderr, opts.Quiet)
}

// runPass is shared by the build and layout call sites.
func (a *App) runPass(
	ctx context.Context,
	sched *scheduler.Scheduler,
	ids []string,
	compute scheduler.ComputeFunc,
	opts BuildOptions,
	cfg *domain.Config,
) (*domain.Report, error) {
	report, err := sched.Process(ctx, ids, compute, opts.apply(cfg))
	return a.finish(report, err, opts)
}
