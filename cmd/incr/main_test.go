package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/cas"
	"go.trai.ch/incr/internal/adapters/config"
	"go.trai.ch/incr/internal/adapters/extract"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/adapters/telemetry"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.trai.ch/incr/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

func newApp(ctrl *gomock.Controller, loader ports.ConfigLoader, log ports.Logger) *app.App {
	return app.New(
		loader,
		log,
		mocks.NewMockStoreOpener(ctrl),
		fs.NewWalker(),
		extract.NewRegistry(),
		scheduler.NewFactory(telemetry.NewNoOpTracer(), log),
		mocks.NewMockWatcherFactory(ctrl),
	)
}

func provide(a *app.App, log ports.Logger) loader {
	return func(_ context.Context) (*app.Components, error) {
		return &app.Components{App: a, Logger: log}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	application := newApp(ctrl, mocks.NewMockConfigLoader(ctrl), log)

	code := run(context.Background(), []string{"version"}, new(bytes.Buffer), provide(application, log))
	assert.Equal(t, 0, code)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	code := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that command errors are logged and exit with 1.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().LoadFile("missing.yaml").Return(nil, domain.ErrConfigReadFailed)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorContains(t, err, domain.ErrConfigReadFailed.Error())
	})

	application := newApp(ctrl, loader, log)
	code := run(context.Background(), []string{"build", "--config", "missing.yaml"}, io.Discard, provide(application, log))
	assert.Equal(t, 1, code)
}

// TestRun_Layout runs a layout pass end to end through the CLI.
func TestRun_Layout(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()
	configPath := filepath.Join(root, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("log_file: \"\"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tree.yaml"), []byte("id: root\nwidth: 10\nheight: 10\n"), 0o600))

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	application := app.New(
		config.NewLoader(log),
		log,
		cas.NewOpener(),
		fs.NewWalker(),
		extract.NewRegistry(),
		scheduler.NewFactory(telemetry.NewNoOpTracer(), log),
		mocks.NewMockWatcherFactory(ctrl),
	)

	stderr := new(bytes.Buffer)
	code := run(context.Background(),
		[]string{"layout", filepath.Join(root, "tree.yaml"), "--config", configPath},
		stderr, provide(application, log))
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "Checking 1 item(s)")
}

// TestRun_Signal verifies that the context is canceled on signal.
func TestRun_Signal(t *testing.T) {
	ctrl := gomock.NewController(t)
	blockCh := make(chan struct{})

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().LoadFile(gomock.Any()).DoAndReturn(func(_ string) (*domain.Config, error) {
		select {
		case <-blockCh:
			return nil, context.Canceled
		case <-time.After(5 * time.Second):
			return nil, errors.New("timeout in mock")
		}
	})

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	application := newApp(ctrl, loader, log)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan int)
	go func() {
		errCh <- run(ctx, []string{"build", "--config", "incr.yaml"}, io.Discard, provide(application, log))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	close(blockCh)

	select {
	case ret := <-errCh:
		assert.NotEqual(t, 0, ret)
	case <-time.After(2 * time.Second):
		t.Fatal("TestRun_Signal timed out waiting for run() to return")
	}
}

func TestExitCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	boom := errors.New("boom")
	log.EXPECT().Error(boom).Times(1)

	assert.Equal(t, 0, exitCode(nil, log))
	assert.Equal(t, 1, exitCode(fmt.Errorf("build: %w", domain.ErrProcessFailed), log))
	assert.Equal(t, 1, exitCode(boom, log))
}
