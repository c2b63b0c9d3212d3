package domain

import (
	"encoding/json"
	"time"
)

// Metrics are the hit/miss counters shared by every call site.
// Processed counts compute step invocations, failed ones included, so it equals
// Misses. Items skipped because a dependency failed only count in Errors.
type Metrics struct {
	Processed      int
	Hits           int
	Misses         int
	Errors         int
	Removed        int
	ProcessingTime time.Duration
}

// HitRatio returns hits / (hits + misses), or 0 when nothing was looked up.
func (m Metrics) HitRatio() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// Add returns the sum of m and other.
func (m Metrics) Add(other Metrics) Metrics {
	return Metrics{
		Processed:      m.Processed + other.Processed,
		Hits:           m.Hits + other.Hits,
		Misses:         m.Misses + other.Misses,
		Errors:         m.Errors + other.Errors,
		Removed:        m.Removed + other.Removed,
		ProcessingTime: m.ProcessingTime + other.ProcessingTime,
	}
}

type metricsJSON struct {
	Processed        int     `json:"processed"`
	Hits             int     `json:"hits"`
	Misses           int     `json:"misses"`
	Errors           int     `json:"errors"`
	Removed          int     `json:"removed"`
	ProcessingTimeNs int64   `json:"processing_time_ns"`
	HitRatio         float64 `json:"hit_ratio"`
}

// MarshalJSON encodes the counters with the derived hit ratio.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		Processed:        m.Processed,
		Hits:             m.Hits,
		Misses:           m.Misses,
		Errors:           m.Errors,
		Removed:          m.Removed,
		ProcessingTimeNs: int64(m.ProcessingTime),
		HitRatio:         m.HitRatio(),
	})
}

// UnmarshalJSON decodes the counters; the hit ratio is derived and ignored.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metrics{
		Processed:      raw.Processed,
		Hits:           raw.Hits,
		Misses:         raw.Misses,
		Errors:         raw.Errors,
		Removed:        raw.Removed,
		ProcessingTime: time.Duration(raw.ProcessingTimeNs),
	}
	return nil
}
