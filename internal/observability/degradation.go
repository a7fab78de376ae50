package observability

import (
	"sync"
	"time"
)

// Health is a point-in-time liveness report
type Health struct {
	Degraded     bool
	Reason       string
	LastFailure  time.Time
	FailureCount int64
}

// DegradationTracker remembers external dependency failures and reports the
// service degraded for a window after the last one.
type DegradationTracker struct {
	window time.Duration
	now    func() time.Time
	gauge  interface{ Set(float64) }

	mu       sync.Mutex
	last     time.Time
	reason   string
	failures int64
}

// NewDegradationTracker creates a tracker. gauge may be nil.
func NewDegradationTracker(window time.Duration, gauge interface{ Set(float64) }) *DegradationTracker {
	if window <= 0 {
		window = time.Minute
	}
	return &DegradationTracker{window: window, now: time.Now, gauge: gauge}
}

// MarkDegraded records a dependency failure
func (t *DegradationTracker) MarkDegraded(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.now()
	t.reason = reason
	t.failures++
	if t.gauge != nil {
		t.gauge.Set(1)
	}
}

// Health reports the current state
func (t *DegradationTracker) Health() Health {
	t.mu.Lock()
	defer t.mu.Unlock()

	degraded := !t.last.IsZero() && t.now().Sub(t.last) < t.window
	if t.gauge != nil && !degraded {
		t.gauge.Set(0)
	}

	h := Health{Degraded: degraded, LastFailure: t.last, FailureCount: t.failures}
	if degraded {
		h.Reason = t.reason
	}
	return h
}
