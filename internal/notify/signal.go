// Package notify provides the broadcast wakeup primitive used to signal
// waiters without the caller needing a dedicated condition variable per
// waited-on event (the solicited-response queue and "all in-progress
// jobs cleared" during shutdown).
package notify

import (
	"context"
	"sync"
)

// Signal is an edge-triggered broadcast: any goroutine blocked on C()
// wakes the instant Notify() runs, and Notify() never blocks on readers.
// A Notify with no goroutine waiting is not remembered.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal returns a ready-to-use Signal.
func NewSignal() *Signal { return &Signal{ch: make(chan struct{})} }

// Notify wakes every goroutine currently blocked on C().
func (s *Signal) Notify() {
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// C returns the channel that closes on the next Notify call. Callers
// must re-fetch C() after each wakeup — the old channel stays closed
// forever once fired.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	return ch
}

// WaitUntil blocks until cond reports true or ctx is done, re-checking
// cond each time Notify fires in between. Returns ctx.Err() on
// cancellation, nil once cond is satisfied.
//
// This is the shape of the "poll loop with bounded sleep" spec.md §4.3
// describes for shutdown()'s wait for in-progress jobs to clear: cond is
// re-evaluated on every wakeup instead of on a fixed timer, so clearing
// the last job wakes the waiter immediately rather than after a sleep
// tick.
func (s *Signal) WaitUntil(ctx context.Context, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		ch := s.C()
		select {
		case <-ch:
		case <-ctx.Done():
			if cond() {
				return nil
			}
			return ctx.Err()
		}
	}
}
