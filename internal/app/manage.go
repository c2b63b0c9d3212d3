package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/zerr"
)

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Patterns invalidates only matching entries instead of removing the index.
	Patterns []string
	Layout   bool
	All      bool
}

// Clean invalidates cache entries. With patterns, matching entries are removed
// from the index; without, the index files are deleted.
func (a *App) Clean(_ context.Context, opts CleanOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if bad, ok := fs.ValidatePatterns(opts.Patterns); !ok {
		return zerr.With(domain.ErrInvalidPattern, "pattern", bad)
	}

	var errs error
	for _, path := range indexes(cfg, opts.Layout, opts.All) {
		name := display(cfg.Root, path)

		if len(opts.Patterns) > 0 {
			store := a.openStore(path, cfg.Compression)
			n := store.Clear(func(id string) bool { return fs.Included(id, opts.Patterns, nil) })
			if err := store.Save(); err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			a.logger.Info(fmt.Sprintf("invalidated %d entries in %s", n, name))
			continue
		}

		switch err := os.Remove(path); {
		case errors.Is(err, os.ErrNotExist):
			a.logger.Info(fmt.Sprintf("%s does not exist", name))
		case err != nil:
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrIndexRemoveFailed.Error()), "path", path))
		default:
			a.logger.Info(fmt.Sprintf("removed %s", name))
		}
	}

	return errs
}

// StatsOptions configuration for the Stats method.
type StatsOptions struct {
	Layout bool
}

// Stats describes a persisted index.
type Stats struct {
	Index     string
	Entries   int
	Size      int64
	LastSaved time.Time
	Metrics   domain.Metrics
}

// Stats reads an index and prints its size, entry count and cumulative metrics.
func (a *App) Stats(_ context.Context, opts StatsOptions) (*Stats, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	path := indexes(cfg, opts.Layout, false)[0]
	store := a.openStore(path, cfg.Compression)

	stats := &Stats{
		Index:     display(cfg.Root, path),
		Entries:   len(store.IDs()),
		LastSaved: store.LastSaved(),
		Metrics:   store.Metrics(),
	}
	if info, err := os.Stat(path); err == nil {
		stats.Size = info.Size()
	}

	return stats, stats.Write(a.stdout)
}

// Write prints the stats as an aligned table.
func (s *Stats) Write(w io.Writer) error {
	lastSaved := "never"
	if !s.LastSaved.IsZero() {
		lastSaved = humanize.Time(s.LastSaved)
	}

	m := s.Metrics
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"index", fmt.Sprintf("%s (%s)", s.Index, humanize.Bytes(uint64(max(s.Size, 0))))},
		{"entries", humanize.Comma(int64(s.Entries))},
		{"last saved", lastSaved},
		{"processed", humanize.Comma(int64(m.Processed))},
		{"hits", humanize.Comma(int64(m.Hits))},
		{"misses", humanize.Comma(int64(m.Misses))},
		{"errors", humanize.Comma(int64(m.Errors))},
		{"removed", humanize.Comma(int64(m.Removed))},
		{"hit ratio", fmt.Sprintf("%.1f%%", m.HitRatio()*100)},
		{"processing time", m.ProcessingTime.Round(time.Millisecond).String()},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// ShowOptions configuration for the Show method.
type ShowOptions struct {
	// Path is a gjson query applied to the cached result.
	Path   string
	Layout bool
}

type entryView struct {
	ID           string             `json:"id"`
	Fingerprint  domain.Fingerprint `json:"fingerprint"`
	Dependencies map[string]string  `json:"dependencies"`
	Digest       string             `json:"digest"`
	ComputedAt   time.Time          `json:"computed_at"`
	Result       json.RawMessage    `json:"result"`
}

// Show prints the cached entry of id, or the part of its result selected by opts.Path.
func (a *App) Show(_ context.Context, id string, opts ShowOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	store := a.openStore(indexes(cfg, opts.Layout, false)[0], cfg.Compression)
	entry, ok := store.Get(id)
	if !ok {
		return zerr.With(domain.ErrItemNotFound, "id", id)
	}

	if opts.Path != "" {
		res := gjson.GetBytes(entry.Result, opts.Path)
		if !res.Exists() {
			return zerr.With(zerr.With(domain.ErrResultPathNotFound, "path", opts.Path), "id", id)
		}
		_, err := fmt.Fprintln(a.stdout, res.String())
		return err
	}

	result := json.RawMessage(entry.Result)
	if !json.Valid(entry.Result) {
		quoted, err := json.Marshal(string(entry.Result))
		if err != nil {
			return err
		}
		result = quoted
	}
	deps := entry.Dependencies
	if deps == nil {
		deps = map[string]string{}
	}

	data, err := json.MarshalIndent(entryView{
		ID:           id,
		Fingerprint:  entry.Fingerprint,
		Dependencies: deps,
		Digest:       entry.Digest,
		ComputedAt:   entry.ComputedAt,
		Result:       result,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}
