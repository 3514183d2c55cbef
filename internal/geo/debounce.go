package geo

import (
	"context"
	"sync"
	"time"
)

// DefaultQuiet is the debounce quiet period between keystrokes.
const DefaultQuiet = 300 * time.Millisecond

// Debouncer serializes suggestion lookups behind a quiet period: a call to
// Await only fetches once the quiet period passes without a newer call, so
// each new keystroke cancels the pending lookup.
type Debouncer struct {
	mu    sync.Mutex
	gen   uint64
	quiet time.Duration
	fetch func(ctx context.Context, query string) []Candidate
}

// NewDebouncer wraps fetch with a quiet period. A non-positive quiet falls
// back to DefaultQuiet.
func NewDebouncer(quiet time.Duration, fetch func(ctx context.Context, query string) []Candidate) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, fetch: fetch}
}

// Await waits out the quiet period and then runs the lookup, unless a newer
// Await supersedes this one first, in which case it returns nothing. Context
// cancellation also returns nothing.
func (d *Debouncer) Await(ctx context.Context, query string) []Candidate {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	timer := time.NewTimer(d.quiet)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if stale {
		return nil
	}

	return d.fetch(ctx, query)
}
