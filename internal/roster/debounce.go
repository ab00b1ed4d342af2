package roster

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence delay applied to search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid values: fn receives the latest pushed value once no new
// value arrived for the delay, and only if it differs from the last delivered value.
// fn runs on a timer goroutine, or on the caller's goroutine for Flush, and must not
// call Close.
type Debouncer[T comparable] struct {
	delay time.Duration
	fn    func(T)

	deliverMu sync.Mutex
	mu        sync.Mutex
	timer     *time.Timer
	pending   T
	hasValue  bool
	last      T
	delivered bool
	closed    bool
}

func NewDebouncer[T comparable](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Push records v and restarts the quiescence timer.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.pending = v
	d.hasValue = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush delivers a pending value immediately.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire()
}

// Close drops any pending value. Nothing is delivered after Close returns.
func (d *Debouncer[T]) Close() {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.hasValue = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) fire() {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	if d.closed || !d.hasValue {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.hasValue = false
	if d.delivered && v == d.last {
		d.mu.Unlock()
		return
	}
	d.last = v
	d.delivered = true
	d.mu.Unlock()

	d.fn(v)
}
