package signals

import (
	"sync"
	"time"
)

// Tracker remembers the last request time per client. Entries older than
// the retention window are dropped on the next sweep.
type Tracker struct {
	mu        sync.Mutex
	last      map[string]time.Time
	retention time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewTracker returns a tracker keeping entries for retention; zero means
// ten minutes.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &Tracker{last: make(map[string]time.Time), retention: retention, now: time.Now}
}

// Observe records a request from key and returns the previous request time.
func (t *Tracker) Observe(key string) (now, prev time.Time, seen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now = t.now()
	prev, seen = t.last[key]
	if seen && now.Sub(prev) > t.retention {
		seen = false
	}
	t.last[key] = now
	if now.Sub(t.lastSweep) > t.retention {
		for k, ts := range t.last {
			if now.Sub(ts) > t.retention {
				delete(t.last, k)
			}
		}
		t.lastSweep = now
	}
	return now, prev, seen
}

// Len returns the number of tracked clients.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

func analyzeTiming(tracker *Tracker, key string) TimingAnalysis {
	analysis := TimingAnalysis{}
	if tracker == nil || key == "" {
		return analysis
	}
	now, prev, seen := tracker.Observe(key)
	if !seen {
		return analysis
	}

	interval := now.Sub(prev)
	analysis.HasPreviousRequest = true
	analysis.RequestInterval = float64(interval.Nanoseconds()) / 1e6
	if analysis.RequestInterval > 0 {
		analysis.RequestsPerSecond = 1000.0 / analysis.RequestInterval
	}
	analysis.IntervalPrecision = intervalPrecision(interval.Milliseconds())
	return analysis
}

// intervalPrecision returns the coarsest round granularity dividing ms.
func intervalPrecision(ms int64) int {
	if ms <= 0 {
		return 0
	}
	for _, p := range []int64{1000, 500, 100, 50, 10} {
		if ms%p == 0 {
			return int(p)
		}
	}
	return 0
}
