package authapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// attemptLedger is the in-memory login lockout: per-address failure counting
// over a window, with a hard lock once the threshold is crossed. State lives
// in process memory; a restart forgives outstanding lockouts, which is the
// accepted tradeoff for keeping the hot path off the database.
type attemptLedger struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry

	threshold int
	window    time.Duration
	lockFor   time.Duration
}

type attemptEntry struct {
	failures    []time.Time
	lockedUntil time.Time
}

func newAttemptLedger(threshold int, window, lockFor time.Duration) *attemptLedger {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	return &attemptLedger{
		entries:   make(map[string]*attemptEntry),
		threshold: threshold,
		window:    window,
		lockFor:   lockFor,
	}
}

// Blocked reports whether addr is currently locked out, and for how much longer.
func (l *attemptLedger) Blocked(addr string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[addr]
	if !ok {
		return false, 0
	}
	if now.Before(e.lockedUntil) {
		return true, e.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts one failed login for addr. Crossing the threshold
// inside the window locks the address and clears the counter, so the next
// cycle starts fresh once the lock expires.
func (l *attemptLedger) RecordFailure(addr string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[addr]
	if !ok {
		e = &attemptEntry{}
		l.entries[addr] = e
	}

	cut := now.Add(-l.window)
	dst := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	e.failures = append(dst, now)

	if len(e.failures) >= l.threshold {
		e.lockedUntil = now.Add(l.lockFor)
		e.failures = e.failures[:0]
	}
}

// Reset forgives addr after a successful login.
func (l *attemptLedger) Reset(addr string) {
	l.mu.Lock()
	delete(l.entries, addr)
	l.mu.Unlock()
}

// Sweep drops entries with no live failures and no active lock.
func (l *attemptLedger) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	for addr, e := range l.entries {
		if now.Before(e.lockedUntil) {
			continue
		}
		live := false
		for _, t := range e.failures {
			if t.After(cut) {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, addr)
		}
	}
}

// ---- request smoothing ----

// ipRateLimiter hands out one token bucket per remote address.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newIPRateLimiter(r float64, burst int) *ipRateLimiter {
	if r <= 0 {
		r = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		burst:    burst,
	}
}

func (l *ipRateLimiter) limiter(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[addr]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[addr] = lim
	}
	return lim
}

// Middleware rejects bursty clients with 429 before any handler work.
func (l *ipRateLimiter) Middleware(trustProxy bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r, trustProxy)
		if !l.limiter(addr).Allow() {
			writeRateLimited(w, 0)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()+0.5), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
