package realtime

import (
	"sync"
	"time"
)

// AddrLedger tracks websocket connection attempts per remote address over a
// trailing window. Unlike FrameBudget it is sliding: each attempt is stamped
// and expired individually, so a burst does not pin the whole window.
type AddrLedger struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewAddrLedger constructs an AddrLedger with safe defaults when inputs are invalid.
func NewAddrLedger(limit int, window time.Duration) *AddrLedger {
	if limit <= 0 {
		limit = connAttemptLimit
	}
	if window <= 0 {
		window = connAttemptWindow
	}
	return &AddrLedger{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow records a connection attempt from addr at time "now" and reports
// whether it is within the per-address budget. Refused attempts are counted
// too, so a hammering client stays refused until it backs off.
func (l *AddrLedger) Allow(addr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	dst := l.attempts[addr][:0]
	for _, t := range l.attempts[addr] {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}

	allowed := len(dst) < l.limit
	dst = append(dst, now)
	l.attempts[addr] = dst
	return allowed
}

// Sweep drops addresses with no attempts inside the window. Called from the
// gateway's periodic sweeper to keep the map from growing without bound.
func (l *AddrLedger) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	for addr, stamps := range l.attempts {
		live := false
		for _, t := range stamps {
			if t.After(cut) {
				live = true
				break
			}
		}
		if !live {
			delete(l.attempts, addr)
		}
	}
}
