// Package linear provides a synchronous, line-oriented progress reporter.
package linear

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/ui/output"
	"go.trai.ch/incr/internal/ui/style"
)

// Reporter implements ports.Reporter by printing one line per settled item.
type Reporter struct {
	out    io.Writer
	output *termenv.Output
	quiet  bool

	mu    sync.Mutex
	total int
	done  int
}

// NewReporter creates a Reporter writing to w. A nil w writes to stderr.
// In quiet mode cache hits are not printed.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{
		out:    w,
		output: output.NewWithProfile(w, output.ColorProfileANSI),
		quiet:  quiet,
	}
}

// OnPlan prints the number of items in the pass.
func (r *Reporter) OnPlan(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = len(ids)
	r.done = 0
	_, _ = fmt.Fprintf(r.out, "Checking %d item(s)\n", r.total)
}

// OnItem prints the outcome of one item.
func (r *Reporter) OnItem(p domain.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if r.quiet && p.FromCache {
		return
	}

	prefix := r.output.String(fmt.Sprintf("[%d/%d] %s", r.done, r.total, p.ID)).Faint().String()

	switch {
	case p.Err != nil:
		symbol := r.output.String(style.Failed).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.out, "%s %s failed: %v\n", prefix, symbol, p.Err)
	case p.FromCache:
		symbol := r.output.String(style.Cached).Foreground(termenv.ANSIBrightBlack).String()
		_, _ = fmt.Fprintf(r.out, "%s %s cached\n", prefix, symbol)
	case p.Reason.Kind == domain.ReasonDeleted:
		symbol := r.output.String(style.Removed).Foreground(termenv.ANSIYellow).String()
		_, _ = fmt.Fprintf(r.out, "%s %s removed\n", prefix, symbol)
	default:
		symbol := r.output.String(style.Computed).Foreground(termenv.ANSIGreen).String()
		_, _ = fmt.Fprintf(r.out, "%s %s computed (%s) in %v\n",
			prefix, symbol, p.Reason, p.Duration.Round(time.Microsecond))
	}
}

// OnComplete prints the pass summary.
func (r *Reporter) OnComplete(rep *domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := rep.Metrics
	_, _ = fmt.Fprintf(r.out, "%d cached, %d computed, %d removed, %d failed (hit ratio %.1f%%)\n",
		m.Hits, m.Processed, m.Removed, m.Errors, m.HitRatio()*100)

	if rep.Aborted {
		warn := r.output.String(style.Warning + " pass stopped early").Foreground(termenv.ANSIYellow).String()
		_, _ = fmt.Fprintln(r.out, warn)
	}
}
