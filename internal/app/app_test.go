package app_test

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
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

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	app    *app.App
	root   string
	stdout *syncBuffer
	stderr *syncBuffer
}

func newFixture(t *testing.T, watchers ports.WatcherFactory) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	if watchers == nil {
		watchers = mocks.NewMockWatcherFactory(ctrl)
	}

	root := t.TempDir()
	writeFile(t, root, domain.ConfigFileName, "log_file: \"\"\n")

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	a := app.New(
		config.NewLoader(log),
		log,
		cas.NewOpener(),
		fs.NewWalker(),
		extract.NewRegistry(),
		scheduler.NewFactory(telemetry.NewNoOpTracer(), log),
		watchers,
	).WithOutput(stdout, stderr)
	a.Configure(app.GlobalOptions{ConfigPath: filepath.Join(root, domain.ConfigFileName)})

	return &fixture{app: a, root: root, stdout: stdout, stderr: stderr}
}

func writeFile(t *testing.T, root, id, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func byID(report *domain.Report) map[string]domain.Progress {
	items := make(map[string]domain.Progress, len(report.Items))
	for _, p := range report.Items {
		items[p.ID] = p
	}
	return items
}

func seedSite(t *testing.T, root string) {
	t.Helper()
	writeFile(t, root, "a.css", "@import \"b.css\";\nbody { color: red; }\n")
	writeFile(t, root, "b.css", "p { margin: 0; }\n")
	writeFile(t, root, "README.md", "# Readme\n")
}

func TestApp_Build_Incremental(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	report, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	items := byID(report)
	require.Len(t, items, 3)
	for id, p := range items {
		assert.False(t, p.FromCache, id)
		assert.Equal(t, "new", p.Reason.String(), id)
	}
	assert.Equal(t, 3, report.Metrics.Misses)
	assert.JSONEq(t,
		`{"bytes":38,"lines":2,"kind":"css","references":["b.css"]}`,
		string(report.Results["a.css"]))

	report, err = f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Metrics.Hits)
	assert.Zero(t, report.Metrics.Misses)

	writeFile(t, f.root, "b.css", "p { margin: 0; padding: 0; }\n")
	require.NoError(t, os.Remove(filepath.Join(f.root, "README.md")))

	report, err = f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	items = byID(report)
	assert.Equal(t, "content-changed", items["b.css"].Reason.String())
	assert.Equal(t, "dependency-changed:b.css", items["a.css"].Reason.String())
	assert.Equal(t, "deleted", items["README.md"].Reason.String())
	assert.Equal(t, 1, report.Metrics.Removed)

	assert.Contains(t, f.stderr.String(), "Checking 3 item(s)")
}

func TestApp_Build_NoCache(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	_, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	report, err := f.app.Build(ctx, app.BuildOptions{NoCache: true})
	require.NoError(t, err)
	assert.Zero(t, report.Metrics.Hits)
	for id, p := range byID(report) {
		assert.Equal(t, "forced", p.Reason.String(), id)
	}
}

func TestApp_Build_JSON(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)

	_, err := f.app.Build(context.Background(), app.BuildOptions{JSON: true, Quiet: true})
	require.NoError(t, err)

	out := f.stdout.String()
	require.True(t, gjson.Valid(out), out)
	assert.Equal(t, int64(3), gjson.Get(out, "metrics.misses").Int())
	assert.Equal(t, "b.css", gjson.Get(out, `results.a\.css.references.0`).String())
	assert.Equal(t, int64(3), gjson.Get(out, "items.#").Int())
}

func TestApp_Build_PrunesExcludedEntries(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	_, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	writeFile(t, f.root, domain.ConfigFileName, "log_file: \"\"\ninclude: [\"**/*.css\"]\n")
	f.app.Configure(app.GlobalOptions{ConfigPath: filepath.Join(f.root, domain.ConfigFileName)})

	report, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Items, 2)
	assert.NotContains(t, byID(report), "README.md")
}

const tree = `
id: page
direction: column
padding: 10
gap: 5
children:
  - id: header
    height: 40
    width: 300
  - id: body
    direction: row
    gap: 2
    children:
      - id: sidebar
        width: 80
        height: 200
      - id: content
        width: 200
        height: 150
`

func TestApp_Layout(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, f.root, "tree.yaml", tree)
	treePath := filepath.Join(f.root, "tree.yaml")
	ctx := context.Background()

	report, err := f.app.Layout(ctx, treePath, app.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Metrics.Misses)
	assert.JSONEq(t, `{"width":320,"height":265}`, string(report.Results["page"]))

	report, err = f.app.Layout(ctx, treePath, app.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Metrics.Hits)

	writeFile(t, f.root, "tree.yaml", strings.Replace(tree, "width: 80", "width: 100", 1))
	report, err = f.app.Layout(ctx, treePath, app.BuildOptions{})
	require.NoError(t, err)
	items := byID(report)
	assert.Equal(t, "content-changed", items["sidebar"].Reason.String())
	assert.Equal(t, "dependency-changed:sidebar", items["body"].Reason.String())
	assert.Equal(t, "dependency-changed:body", items["page"].Reason.String())
	assert.True(t, items["header"].FromCache)
	assert.JSONEq(t, `{"width":322,"height":265}`, string(report.Results["page"]))

	require.NoError(t, f.app.Show(ctx, "body", app.ShowOptions{Layout: true, Path: "width"}))
	assert.Equal(t, "302\n", f.stdout.String())
}

func TestApp_Show(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	_, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	require.NoError(t, f.app.Show(ctx, "a.css", app.ShowOptions{Path: "references.0"}))
	assert.Equal(t, "b.css\n", f.stdout.String())

	f.stdout.buf.Reset()
	require.NoError(t, f.app.Show(ctx, "a.css", app.ShowOptions{}))
	out := f.stdout.String()
	assert.Equal(t, "a.css", gjson.Get(out, "id").String())
	assert.Len(t, gjson.Get(out, "fingerprint.content_hash").String(), 64)
	assert.True(t, gjson.Get(out, `dependencies.b\.css`).Exists())
	assert.Equal(t, "css", gjson.Get(out, "result.kind").String())

	err = f.app.Show(ctx, "a.css", app.ShowOptions{Path: "nope"})
	assert.ErrorContains(t, err, domain.ErrResultPathNotFound.Error())

	err = f.app.Show(ctx, "missing.css", app.ShowOptions{})
	assert.ErrorContains(t, err, domain.ErrItemNotFound.Error())
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	_, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	require.NoError(t, f.app.Clean(ctx, app.CleanOptions{Patterns: []string{"**/*.md"}}))
	assert.ErrorContains(t, f.app.Show(ctx, "README.md", app.ShowOptions{}), domain.ErrItemNotFound.Error())
	require.NoError(t, f.app.Show(ctx, "a.css", app.ShowOptions{Path: "kind"}))

	report, err := f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "new", byID(report)["README.md"].Reason.String())
	assert.Equal(t, 2, report.Metrics.Hits)

	err = f.app.Clean(ctx, app.CleanOptions{Patterns: []string{"[z-a"}})
	assert.ErrorContains(t, err, domain.ErrInvalidPattern.Error())

	require.NoError(t, f.app.Clean(ctx, app.CleanOptions{All: true}))
	_, err = os.Stat(filepath.Join(f.root, domain.DefaultIndexPath()))
	assert.True(t, os.IsNotExist(err))

	// Cleaning again is not an error.
	require.NoError(t, f.app.Clean(ctx, app.CleanOptions{}))
}

func TestApp_Stats(t *testing.T) {
	f := newFixture(t, nil)
	seedSite(t, f.root)
	ctx := context.Background()

	stats, err := f.app.Stats(ctx, app.StatsOptions{})
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.Contains(t, f.stdout.String(), "never")

	_, err = f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)
	_, err = f.app.Build(ctx, app.BuildOptions{})
	require.NoError(t, err)

	f.stdout.buf.Reset()
	stats, err = f.app.Stats(ctx, app.StatsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, filepath.Join(".incr", "index.json"), stats.Index)
	assert.Positive(t, stats.Size)
	assert.Equal(t, 3, stats.Metrics.Hits)
	assert.Equal(t, 3, stats.Metrics.Misses)
	assert.Contains(t, f.stdout.String(), "hit ratio:")
	assert.Contains(t, f.stdout.String(), "50.0%")
}

func TestStats_Write(t *testing.T) {
	var buf bytes.Buffer
	stats := &app.Stats{
		Index:   ".incr/index.json",
		Entries: 1200,
		Size:    2048,
		Metrics: domain.Metrics{Processed: 1, Hits: 3, Misses: 1, ProcessingTime: 1500 * time.Microsecond},
	}
	require.NoError(t, stats.Write(&buf))

	rows := [][2]string{
		{"index:", ".incr/index.json (2.0 kB)"},
		{"entries:", "1,200"},
		{"last saved:", "never"},
		{"processed:", "1"},
		{"hits:", "3"},
		{"misses:", "1"},
		{"errors:", "0"},
		{"removed:", "0"},
		{"hit ratio:", "75.0%"},
		{"processing time:", "2ms"},
	}
	var want strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&want, "%-18s%s\n", row[0], row[1])
	}
	assert.Equal(t, want.String(), buf.String())
}

func TestApp_Watch(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := make(chan ports.WatchEvent, 4)
	var once sync.Once

	w := mocks.NewMockWatcher(ctrl)
	w.EXPECT().Start(gomock.Any(), gomock.Any(), []string{domain.IncrDirName}).Return(nil)
	w.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
		for e := range events {
			if !yield(e) {
				return
			}
		}
	}))
	w.EXPECT().Stop().DoAndReturn(func() error {
		once.Do(func() { close(events) })
		return nil
	})

	factory := mocks.NewMockWatcherFactory(ctrl)
	factory.EXPECT().New().Return(w, nil)

	f := newFixture(t, factory)
	seedSite(t, f.root)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Watch(ctx, app.BuildOptions{}) }()

	passes := func() int { return strings.Count(f.stderr.String(), "Checking ") }
	require.Eventually(t, func() bool { return passes() == 1 }, 5*time.Second, 10*time.Millisecond)

	writeFile(t, f.root, "c.css", "a { }\n")
	path := filepath.Join(f.root, "c.css")
	events <- ports.WatchEvent{Path: path, Operation: ports.OpCreate}
	events <- ports.WatchEvent{Path: path, Operation: ports.OpWrite}

	require.Eventually(t, func() bool { return passes() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, f.stderr.String(), "Checking 4 item(s)")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Equal(t, 2, passes(), "both events coalesce into one pass")
}
