package domain

import (
	"encoding/json"
	"time"
)

// Output is what a compute step returns for one item.
type Output struct {
	// Result is the opaque payload to cache.
	Result []byte
	// Dependencies replaces the item's dependency set when non-nil.
	// A nil slice keeps whatever edges the graph already holds.
	Dependencies []string
}

// Progress is reported for every item a pass settles.
type Progress struct {
	ID        string
	FromCache bool
	Reason    Reason
	Duration  time.Duration
	Err       error
}

// ProcessingTimeMs returns the duration in milliseconds.
func (p Progress) ProcessingTimeMs() float64 {
	return float64(p.Duration) / float64(time.Millisecond)
}

// ItemError pairs an item with the error its compute step returned.
type ItemError struct {
	ID  string
	Err error
}

// Error implements error.
func (e ItemError) Error() string {
	return e.ID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e ItemError) Unwrap() error {
	return e.Err
}

// Report is the outcome of one scheduling pass.
type Report struct {
	RunID string
	// Results holds the payload of every item that was served or computed.
	Results map[string][]byte
	// Items lists per-item progress in processing order.
	Items   []Progress
	Errors  []ItemError
	Metrics Metrics
	Cycles  []Cycle
	// Aborted is set when the pass stopped before settling every item.
	Aborted bool
}

// NewReport returns an empty report for the given run.
func NewReport(runID string) *Report {
	return &Report{
		RunID:   runID,
		Results: make(map[string][]byte),
	}
}

// Failed reports whether any item failed.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

type progressJSON struct {
	ID               string  `json:"id"`
	FromCache        bool    `json:"from_cache"`
	Reason           string  `json:"reason,omitempty"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	Error            string  `json:"error,omitempty"`
}

type reportJSON struct {
	RunID   string                     `json:"run_id"`
	Items   []progressJSON             `json:"items"`
	Results map[string]json.RawMessage `json:"results,omitempty"`
	Errors  []map[string]string        `json:"errors,omitempty"`
	Metrics Metrics                    `json:"metrics"`
	Cycles  []Cycle                    `json:"cycles,omitempty"`
	Aborted bool                       `json:"aborted"`
}

// MarshalJSON renders the report for machine consumption. Results that are
// not valid JSON are encoded as JSON strings.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:   r.RunID,
		Items:   make([]progressJSON, 0, len(r.Items)),
		Results: make(map[string]json.RawMessage, len(r.Results)),
		Metrics: r.Metrics,
		Cycles:  r.Cycles,
		Aborted: r.Aborted,
	}
	for _, p := range r.Items {
		item := progressJSON{
			ID:               p.ID,
			FromCache:        p.FromCache,
			Reason:           p.Reason.String(),
			ProcessingTimeMs: p.ProcessingTimeMs(),
		}
		if p.Err != nil {
			item.Error = p.Err.Error()
		}
		out.Items = append(out.Items, item)
	}
	for id, result := range r.Results {
		if json.Valid(result) {
			out.Results[id] = result
			continue
		}
		quoted, err := json.Marshal(string(result))
		if err != nil {
			return nil, err
		}
		out.Results[id] = quoted
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, map[string]string{"id": e.ID, "error": e.Err.Error()})
	}
	return json.Marshal(out)
}
