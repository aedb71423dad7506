package media

import (
	"runtime"
	"sync/atomic"
	"time"
)

// idleSleep bounds every retry of a transient condition: paused, queue full,
// queue empty, or no audio clock yet.
const idleSleep = 10 * time.Millisecond

// Clock is the audio clock: the presentation time, in nanoseconds, of the
// most recently played audio. Zero means audio has not started.
type Clock struct {
	ns atomic.Int64
}

// Now returns the clock in nanoseconds.
func (c *Clock) Now() int64 { return c.ns.Load() }

// Store sets the clock.
func (c *Clock) Store(pts int64) { c.ns.Store(pts) }

// Control holds the playback state shared by the decoder, pacer and audio
// output.
type Control struct {
	paused atomic.Bool
}

// NewControl returns a Control in the paused state.
func NewControl() *Control {
	c := &Control{}
	c.paused.Store(true)
	return c
}

// Paused reports whether playback is paused.
func (c *Control) Paused() bool { return c.paused.Load() }

// SetPaused sets the paused flag.
func (c *Control) SetPaused(p bool) { c.paused.Store(p) }

// spinMargin is how long before the deadline SleepPrecise stops sleeping and
// starts spinning.
const spinMargin = 2 * time.Millisecond

// SleepPrecise sleeps for d. It sleeps coarsely until spinMargin before the
// deadline and then yields in a loop until the deadline passes.
func SleepPrecise(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > spinMargin {
		time.Sleep(d - spinMargin)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
