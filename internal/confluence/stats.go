package confluence

import (
	"slices"
	"sync"
	"time"
)

type call struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// OpSnapshot aggregates the recent calls of one gateway operation.
type OpSnapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
}

// CallStats keeps a rolling window of gateway call latencies per operation.
type CallStats struct {
	mu     sync.Mutex
	calls  map[string][]call
	window time.Duration
	now    func() time.Time
}

func NewCallStats(window time.Duration) *CallStats {
	if window <= 0 {
		window = time.Hour
	}
	return &CallStats{
		calls:  make(map[string][]call),
		window: window,
		now:    time.Now,
	}
}

// Record adds one call of op. Negative durations are clamped to zero.
func (s *CallStats) Record(op string, d time.Duration, err error) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.calls[op] = append(s.calls[op], call{at: now, duration: d, failed: err != nil})
}

// Snapshot returns per-operation aggregates for calls inside the window.
func (s *CallStats) Snapshot() map[string]OpSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	out := make(map[string]OpSnapshot, len(s.calls))
	for op, calls := range s.calls {
		ms := make([]int64, 0, len(calls))
		var sum int64
		var failed int
		for _, c := range calls {
			v := c.duration.Milliseconds()
			ms = append(ms, v)
			sum += v
			if c.failed {
				failed++
			}
		}
		slices.Sort(ms)
		out[op] = OpSnapshot{
			Count:  len(ms),
			Errors: failed,
			MinMs:  ms[0],
			MaxMs:  ms[len(ms)-1],
			AvgMs:  float64(sum) / float64(len(ms)),
			P50Ms:  percentile(ms, 50),
			P95Ms:  percentile(ms, 95),
		}
	}
	return out
}

func (s *CallStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	for op, calls := range s.calls {
		kept := calls[:0]
		for _, c := range calls {
			if !c.at.Before(cutoff) {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(s.calls, op)
			continue
		}
		s.calls[op] = kept
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	frac := idx - float64(lower)
	return float64(sorted[lower]) + frac*float64(sorted[lower+1]-sorted[lower])
}
