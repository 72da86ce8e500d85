package fallback

import (
	"sync"
	"time"
)

// Stats holds process-lifetime fallback counters. Not persisted.
type Stats struct {
	mu         sync.Mutex
	total      int64
	successful int64
	failed     int64
	byAction   map[Action]int64
	elapsedSum time.Duration
}

// NewStats returns zeroed statistics.
func NewStats() *Stats {
	return &Stats{byAction: make(map[Action]int64)}
}

// Record counts one fallback execution.
func (s *Stats) Record(action Action, success bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if success {
		s.successful++
	} else {
		s.failed++
	}
	s.byAction[action]++
	s.elapsedSum += elapsed
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	Total             int64            `json:"total"`
	Successful        int64            `json:"successful"`
	Failed            int64            `json:"failed"`
	ByAction          map[string]int64 `json:"by_action"`
	AvgResponseMillis float64          `json:"avg_response_ms"`
	SuccessRate       float64          `json:"success_rate"`
}

// Snapshot computes the aggregate view on demand.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{
		Total:      s.total,
		Successful: s.successful,
		Failed:     s.failed,
		ByAction:   make(map[string]int64, len(s.byAction)),
	}
	for a, n := range s.byAction {
		out.ByAction[string(a)] = n
	}
	if s.total > 0 {
		out.AvgResponseMillis = float64(s.elapsedSum.Milliseconds()) / float64(s.total)
		out.SuccessRate = float64(s.successful) / float64(s.total) * 100
	}
	return out
}
