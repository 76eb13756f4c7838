package credential

import (
	"context"
	"runtime"
)

// Pool bounds concurrent hashing work so a burst of logins cannot pile up
// unbounded scrypt allocations. All callers still run the transform on their
// own goroutine; the pool only gates admission.
type Pool struct {
	sem chan struct{}
}

// NewPool constructs a Pool with the given number of slots.
// size <= 0 selects a CPU-derived default clamped to [1..4].
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
		if size < 1 {
			size = 1
		}
		if size > 4 {
			size = 4
		}
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free. It returns the context error when ctx is
// done before a slot opens; fn's own error otherwise.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.sem <- struct{}{}:
	}
	defer func() { <-p.sem }()

	return fn()
}
