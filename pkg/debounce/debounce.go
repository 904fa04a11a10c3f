// Package debounce coalesces bursts of values into a single delivery.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used when none is configured.
const DefaultWindow = 300 * time.Millisecond

// Debouncer delivers the last value pushed once no new value has arrived for
// the window. A later Push always supersedes an earlier one, and the final
// value of a burst is never dropped unless Cancel is called.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	deliver func(T)
	timer   *time.Timer
	pending T
	armed   bool
	gen     uint64
}

// New creates a Debouncer calling deliver on its own goroutine.
func New[T any](window time.Duration, deliver func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{window: window, deliver: deliver}
}

// Window returns the configured quiet period
func (d *Debouncer[T]) Window() time.Duration {
	return d.window
}

// Push records v and restarts the window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.pending = v
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Flush delivers the pending value immediately on the caller's goroutine.
// It reports whether a value was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	v, ok := d.take()
	d.mu.Unlock()

	if ok {
		d.deliver(v)
	}
	return ok
}

// Cancel discards the pending value.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take()
}

// Pending reports whether a value is waiting for delivery
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.armed {
		// superseded by a later Push, or flushed or cancelled
		d.mu.Unlock()
		return
	}
	v, _ := d.take()
	d.mu.Unlock()

	d.deliver(v)
}

// take must be called with mu held.
func (d *Debouncer[T]) take() (T, bool) {
	var zero T
	if !d.armed {
		return zero, false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	d.pending = zero
	d.armed = false
	d.gen++
	return v, true
}
