package media

import (
	"context"
	"time"
)

// Pacer presents queued frames when the audio clock reaches their
// timestamps.
type Pacer struct {
	Queue   *FrameQueue
	Clock   *Clock
	Control *Control

	// Present receives each frame in order.
	Present func(*Frame)

	// Sleep waits out idle conditions. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// SleepUntil waits for an early frame. Defaults to SleepPrecise.
	SleepUntil func(time.Duration)
}

// NewPacer returns a pacer fed by d.
func NewPacer(d *Decoder, present func(*Frame)) *Pacer {
	return &Pacer{Queue: d.Queue(), Clock: d.Clock(), Control: d.Control(), Present: present}
}

// Step presents at most one frame. A frame ahead of the clock is waited for
// first; slept reports that wait. When paused, the queue is empty or the
// clock has not started, Step idles for a short while and presents nothing.
func (p *Pacer) Step() (presented bool, slept time.Duration) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	clock := p.Clock.Now()
	if p.Control.Paused() || clock == 0 {
		sleep(idleSleep)
		return false, 0
	}
	f, ok := p.Queue.Peek()
	if !ok {
		sleep(idleSleep)
		return false, 0
	}

	if f.PTS > clock {
		slept = time.Duration(f.PTS - clock)
		until := p.SleepUntil
		if until == nil {
			until = SleepPrecise
		}
		until(slept)
	}
	f, ok = p.Queue.Pop()
	if !ok {
		// flushed by a seek while sleeping
		return false, slept
	}
	if p.Present != nil {
		p.Present(f)
	}
	return true, slept
}

// Run steps until ctx is cancelled.
func (p *Pacer) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		p.Step()
	}
	return nil
}
