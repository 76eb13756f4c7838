// Package consumer implements the receiving side of the signed comment-event
// stream: a replay guard that admits each event at most once and discards
// stale or malformed deliveries before they reach application state.
package consumer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// Max remembered deliveries. When the set fills up, the oldest half is
	// evicted in insertion order so the guard keeps a bounded footprint
	// without losing the most recent history.
	guardMaxEntries = 1000

	// Deliveries older than this are discarded outright; the seen-set only
	// has to cover the freshness horizon.
	guardFreshness = 30 * time.Second
)

// Admission errors (stable for errors.Is).
var (
	ErrMissingFields = errors.New("event is missing required fields")
	ErrStale         = errors.New("event is older than the freshness window")
	ErrDuplicate     = errors.New("event was already delivered")
)

// Guard is the replay filter. Events are keyed by timestamp and payload id,
// so the same payload re-signed at a new timestamp is a distinct delivery.
type Guard struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string

	maxEntries int
	freshness  time.Duration
}

// NewGuard constructs a Guard with the standard bounds.
func NewGuard() *Guard {
	return &Guard{
		seen:       make(map[string]struct{}, guardMaxEntries),
		order:      make([]string, 0, guardMaxEntries),
		maxEntries: guardMaxEntries,
		freshness:  guardFreshness,
	}
}

// Admit records the delivery keyed by (timestamp, payloadID) and reports
// whether it should be applied. now is the consumer's clock; timestamp is the
// producer's, in milliseconds.
//
// Duplicates are detected before freshness: a redelivery of an already-applied
// event counts as a replay even when it arrives after the freshness horizon.
func (g *Guard) Admit(payloadID, timestamp int64, now time.Time) error {
	if timestamp <= 0 {
		return ErrMissingFields
	}

	key := fmt.Sprintf("%d-%d", timestamp, payloadID)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.seen[key]; dup {
		return ErrDuplicate
	}
	if now.Sub(time.UnixMilli(timestamp)) > g.freshness {
		return ErrStale
	}

	if len(g.order) >= g.maxEntries {
		half := len(g.order) / 2
		for _, old := range g.order[:half] {
			delete(g.seen, old)
		}
		g.order = append(g.order[:0], g.order[half:]...)
	}

	g.seen[key] = struct{}{}
	g.order = append(g.order, key)
	return nil
}

// Len reports the number of remembered deliveries (for tests).
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}
