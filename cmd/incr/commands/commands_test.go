package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/cmd/incr/commands"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/build"
	"go.trai.ch/incr/internal/core/domain"
)

type mockApp struct {
	global    app.GlobalOptions
	buildFunc func(ctx context.Context, opts app.BuildOptions) (*domain.Report, error)
	layout    func(ctx context.Context, treePath string, opts app.BuildOptions) (*domain.Report, error)
	watchFunc func(ctx context.Context, opts app.BuildOptions) error
	cleanFunc func(ctx context.Context, opts app.CleanOptions) error
	statsFunc func(ctx context.Context, opts app.StatsOptions) (*app.Stats, error)
	showFunc  func(ctx context.Context, id string, opts app.ShowOptions) error
}

func (m *mockApp) Configure(opts app.GlobalOptions) {
	m.global = opts
}

func (m *mockApp) Build(ctx context.Context, opts app.BuildOptions) (*domain.Report, error) {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, opts)
	}
	return nil, nil
}

func (m *mockApp) Layout(ctx context.Context, treePath string, opts app.BuildOptions) (*domain.Report, error) {
	if m.layout != nil {
		return m.layout(ctx, treePath, opts)
	}
	return nil, nil
}

func (m *mockApp) Watch(ctx context.Context, opts app.BuildOptions) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Stats(ctx context.Context, opts app.StatsOptions) (*app.Stats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, opts)
	}
	return &app.Stats{}, nil
}

func (m *mockApp) Show(ctx context.Context, id string, opts app.ShowOptions) error {
	if m.showFunc != nil {
		return m.showFunc(ctx, id, opts)
	}
	return nil
}

func execute(t *testing.T, m *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(m)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.BuildOptions
		mock := &mockApp{
			buildFunc: func(_ context.Context, opts app.BuildOptions) (*domain.Report, error) {
				captured = opts
				return nil, nil
			},
		}

		_, err := execute(t, mock, "build", "--no-cache", "-j", "4", "--flush-every", "5", "--json", "-q")
		require.NoError(t, err)
		assert.True(t, captured.NoCache)
		assert.Equal(t, 4, captured.Parallelism)
		assert.Equal(t, 5, captured.FlushEvery)
		assert.True(t, captured.JSON)
		assert.True(t, captured.Quiet)
		assert.Nil(t, captured.ContinueOnError, "unset flag keeps the configured policy")
	})

	t.Run("explicit continue-on-error overrides config", func(t *testing.T) {
		var captured app.BuildOptions
		mock := &mockApp{
			buildFunc: func(_ context.Context, opts app.BuildOptions) (*domain.Report, error) {
				captured = opts
				return nil, nil
			},
		}

		_, err := execute(t, mock, "build", "--continue-on-error=false")
		require.NoError(t, err)
		require.NotNil(t, captured.ContinueOnError)
		assert.False(t, *captured.ContinueOnError)
	})

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ app.BuildOptions) (*domain.Report, error) {
				return nil, errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "build")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("rejects arguments", func(t *testing.T) {
		_, err := execute(t, &mockApp{}, "build", "extra")
		require.Error(t, err)
	})
}

func TestCommands_GlobalFlags(t *testing.T) {
	mock := &mockApp{}
	_, err := execute(t, mock, "build", "--config", "site/incr.yaml", "--json-logs", "-v")
	require.NoError(t, err)
	assert.Equal(t, "site/incr.yaml", mock.global.ConfigPath)
	assert.True(t, mock.global.JSONLogs)
	assert.True(t, mock.global.Verbose)
	assert.Nil(t, mock.global.LogFile)

	mock = &mockApp{}
	_, err = execute(t, mock, "stats", "--log-file", "")
	require.NoError(t, err)
	require.NotNil(t, mock.global.LogFile, "an explicit empty log file disables the configured one")
	assert.Empty(t, *mock.global.LogFile)
}

func TestCommands_Layout(t *testing.T) {
	var (
		capturedPath string
		captured     app.BuildOptions
	)
	mock := &mockApp{
		layout: func(_ context.Context, treePath string, opts app.BuildOptions) (*domain.Report, error) {
			capturedPath = treePath
			captured = opts
			return nil, nil
		},
	}

	_, err := execute(t, mock, "layout", "ui/tree.yaml", "-n")
	require.NoError(t, err)
	assert.Equal(t, "ui/tree.yaml", capturedPath)
	assert.True(t, captured.NoCache)

	_, err = execute(t, mock, "layout")
	require.Error(t, err, "the tree path is required")
}

func TestCommands_Watch(t *testing.T) {
	called := false
	mock := &mockApp{
		watchFunc: func(_ context.Context, opts app.BuildOptions) error {
			called = true
			assert.Equal(t, 2, opts.Parallelism)
			return nil
		},
	}

	_, err := execute(t, mock, "watch", "--parallelism", "2")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.CleanOptions
	}{
		{"default", []string{"clean"}, app.CleanOptions{}},
		{"layout", []string{"clean", "--layout"}, app.CleanOptions{Layout: true}},
		{"all", []string{"clean", "-a"}, app.CleanOptions{All: true}},
		{"patterns", []string{"clean", "**/*.css", "docs/**"}, app.CleanOptions{Patterns: []string{"**/*.css", "docs/**"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured app.CleanOptions
			mock := &mockApp{
				cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
					captured = opts
					return nil
				},
			}

			_, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			if len(tt.want.Patterns) == 0 {
				assert.Empty(t, captured.Patterns)
				captured.Patterns = nil
			}
			assert.Equal(t, tt.want, captured)
		})
	}
}

func TestCommands_StatsAndShow(t *testing.T) {
	var (
		stats   app.StatsOptions
		shownID string
		shown   app.ShowOptions
	)
	mock := &mockApp{
		statsFunc: func(_ context.Context, opts app.StatsOptions) (*app.Stats, error) {
			stats = opts
			return &app.Stats{}, nil
		},
		showFunc: func(_ context.Context, id string, opts app.ShowOptions) error {
			shownID = id
			shown = opts
			return nil
		},
	}

	_, err := execute(t, mock, "stats", "-l")
	require.NoError(t, err)
	assert.True(t, stats.Layout)

	_, err = execute(t, mock, "show", "styles/main.css", "--path", "references.#")
	require.NoError(t, err)
	assert.Equal(t, "styles/main.css", shownID)
	assert.Equal(t, app.ShowOptions{Path: "references.#"}, shown)

	_, err = execute(t, mock, "show")
	require.Error(t, err)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "incr version "+build.Version)
}
