package viewport

import "time"

// DefaultDebounce is the default coalescing window for motion bursts.
const DefaultDebounce = 120 * time.Millisecond

// Debouncer coalesces bursts of triggers into one trailing-edge firing.
//
// It owns no timer: the event loop calls [Debouncer.Due] on every
// animation-frame tick, which keeps it deterministic under test. A
// Debouncer is not safe for concurrent use.
type Debouncer struct {
	window  time.Duration
	last    time.Time
	pending int
}

// NewDebouncer creates a debouncer. A zero window fires on the next tick.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Window returns the coalescing window.
func (d *Debouncer) Window() time.Duration { return d.window }

// Trigger records a trigger at now, restarting the window.
func (d *Debouncer) Trigger(now time.Time) {
	d.last = now
	d.pending++
}

// Pending reports whether triggers are waiting.
func (d *Debouncer) Pending() bool { return d.pending > 0 }

// Due reports whether the window has passed since the last trigger.
func (d *Debouncer) Due(now time.Time) bool {
	return d.pending > 0 && now.Sub(d.last) >= d.window
}

// Flush clears pending triggers and returns how many were coalesced.
func (d *Debouncer) Flush() int {
	n := d.pending
	d.pending = 0
	return n
}
