package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger returns a logger writing uncolored output into a buffer.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New().(*logger.Logger)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name       string
		log        func(l *logger.Logger)
		goldenName string
	}{
		{"info", func(l *logger.Logger) { l.Info("3 cached, 1 computed") }, "info_basic"},
		{"info multiline", func(l *logger.Logger) { l.Info("line1\nline2") }, "info_multiline"},
		{"warn", func(l *logger.Logger) { l.Warn("cache index unreadable, starting cold") }, "warn_basic"},
		{"debug hidden", func(l *logger.Logger) { l.Debug("computing a.css") }, "debug_hidden"},
		{"debug verbose", func(l *logger.Logger) {
			l.SetVerbose(true)
			l.Debug("computing a.css")
		}, "debug_verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{"standard", errors.New("boom"), "error_standard"},
		{
			"chain with metadata",
			zerr.With(zerr.Wrap(errors.New("no space left on device"), "cache store save failed"), "path", ".incr/index.json"),
			"error_chain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Error(tt.err)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}

	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)
	lg.Error(errors.New("boom"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "boom", record["error"])

	buf.Reset()
	lg.SetJSON(false)
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestLogger_LogFile(t *testing.T) {
	lg, buf := newTestLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "incr.log")
	lg.SetLogFile(path)

	lg.Debug("computing a.css")
	lg.Info("done")
	require.NoError(t, lg.Close())

	assert.Equal(t, "done\n", buf.String(), "debug records stay off the console")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, "computing a.css", first["msg"])

	buf.Reset()
	lg.Info("after close")
	assert.Equal(t, "after close\n", buf.String())
}
