// Debounced persistence: batches many logical writes into one physical
// write after a quiet period.
//
// Each logical key owns at most one pending timer; a new trigger cancels
// and reschedules it. Flush runs everything still pending synchronously,
// so callers can guarantee durability at shutdown or before destructive
// operations.

package storage

import (
	"sync"
	"time"
)

// Debouncer coalesces repeated triggers per key into a single callback
// after delay. Safe for concurrent use.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]func()
	closed  bool
}

// NewDebouncer creates a debouncer with the given quiet period. A
// non-positive delay disables batching: triggers run synchronously.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]func()),
	}
}

// Trigger schedules fn to run after the quiet period, replacing any
// previously pending callback for the same key.
func (d *Debouncer) Trigger(key string, fn func()) {
	if d.delay <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		fn()
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.pending[key] = fn
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.fire(key)
	})
	d.mu.Unlock()
}

// fire runs the pending callback for key, if it is still pending.
func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	fn := d.pending[key]
	delete(d.pending, key)
	delete(d.timers, key)
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Cancel drops the pending callback for key without running it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
	delete(d.pending, key)
}

// Flush runs every pending callback immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.pending))
	for key, fn := range d.pending {
		if t, ok := d.timers[key]; ok {
			t.Stop()
		}
		fns = append(fns, fn)
	}
	d.pending = make(map[string]func())
	d.timers = make(map[string]*time.Timer)
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close flushes pending callbacks and makes future triggers synchronous.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.Flush()
}
