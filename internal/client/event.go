package client

import (
	"context"
	"sync"
)

// event is a level-triggered signal safe for concurrent set/clear/wait.
// A single Set wakes every goroutine currently blocked in Wait; each
// woken waiter clears the signal on its way out, so once all waiters
// have returned the event reads as unset again.
type event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

// Set marks the event and wakes all current waiters.
func (e *event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear resets the event to unset.
func (e *event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *event) clearLocked() {
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports whether the event is currently set.
func (e *event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Consume reports whether the event was set, clearing it if so.
func (e *event) Consume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		return false
	}
	e.clearLocked()
	return true
}

// Wait blocks until the event is set or ctx is done. On wakeup the
// waiter consumes the signal (at-most-once delivery per wait).
func (e *event) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.set {
		e.clearLocked()
		e.mu.Unlock()
		return nil
	}
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		e.Consume()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
