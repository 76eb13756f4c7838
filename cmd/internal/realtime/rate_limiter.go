package realtime

import (
	"sync"
	"time"
)

// FrameBudget is a per-connection fixed-window frame limiter.
// The counter resets when the window elapses; while exhausted the
// connection must be closed rather than throttled.
type FrameBudget struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	limit       int
	window      time.Duration
}

// NewFrameBudget constructs a FrameBudget with safe defaults when inputs are invalid.
func NewFrameBudget(limit int, window time.Duration) *FrameBudget {
	if limit <= 0 {
		limit = frameLimit
	}
	if window <= 0 {
		window = frameWindow
	}
	return &FrameBudget{
		limit:  limit,
		window: window,
	}
}

// Allow reports whether a frame arriving at time "now" is within budget.
func (b *FrameBudget) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.count = 0
	}
	if b.count >= b.limit {
		return false
	}
	b.count++
	return true
}
