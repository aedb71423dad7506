package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Source is the boundary to a decode library. Next returns decoded units in
// stream order and io.EOF at the end of the stream.
type Source interface {
	Next() (Unit, error)
	Seek(pts int64) error
	Dimensions() (w, h int)
	Close() error
}

// Default decoder sizes.
const (
	DefaultVideoQueue = 10
	DefaultAudioRing  = 50 * 1024 * 1024
)

// DecoderOptions configures a Decoder. Zero fields take the defaults.
type DecoderOptions struct {
	// VideoQueue is the frame queue capacity.
	VideoQueue int

	// AudioRing is the audio ring capacity in samples.
	AudioRing int

	// Sleep waits out transient conditions. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Decoder pulls units from a Source into the frame queue and audio ring.
type Decoder struct {
	src   Source
	sleep func(time.Duration)

	queue    *FrameQueue
	ring     *AudioRing
	control  *Control
	clock    *Clock
	commands chan Command
	dims     atomic.Pointer[[2]int]
}

// NewDecoder returns a paused decoder reading from src.
func NewDecoder(src Source, opts DecoderOptions) *Decoder {
	if opts.VideoQueue <= 0 {
		opts.VideoQueue = DefaultVideoQueue
	}
	if opts.AudioRing <= 0 {
		opts.AudioRing = DefaultAudioRing
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Decoder{
		src:      src,
		sleep:    opts.Sleep,
		queue:    NewFrameQueue(opts.VideoQueue),
		ring:     NewAudioRing(opts.AudioRing),
		control:  NewControl(),
		clock:    &Clock{},
		commands: make(chan Command, 1),
	}
}

// Queue returns the decoded frame queue.
func (d *Decoder) Queue() *FrameQueue { return d.queue }

// Ring returns the decoded audio ring.
func (d *Decoder) Ring() *AudioRing { return d.ring }

// Control returns the shared playback state.
func (d *Decoder) Control() *Control { return d.control }

// Clock returns the audio clock.
func (d *Decoder) Clock() *Clock { return d.clock }

// Commands returns the command channel. It holds one pending command.
func (d *Decoder) Commands() chan<- Command { return d.commands }

// Dimensions returns the size of the first decoded frame. ok is false until
// a frame has been decoded.
func (d *Decoder) Dimensions() (w, h int, ok bool) {
	p := d.dims.Load()
	if p == nil {
		return 0, 0, false
	}
	return p[0], p[1], true
}

// Start runs the decode loop until the source ends, ctx is cancelled or the
// source fails. End of stream returns nil and leaves the playback state as
// it is.
func (d *Decoder) Start(ctx context.Context) error {
	w, h := d.src.Dimensions()
	slogger().Info("decoder started", "width", w, "height", h,
		"video_queue", d.queue.Cap(), "audio_ring", d.ring.Cap())

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		select {
		case cmd := <-d.commands:
			d.handle(cmd)
		default:
		}

		if d.control.Paused() || d.queue.Full() {
			d.sleep(idleSleep)
			continue
		}

		u, err := d.src.Next()
		if errors.Is(err, io.EOF) {
			slogger().Info("decoder reached end of stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("media: decode: %w", err)
		}
		d.push(u)
	}
}

func (d *Decoder) handle(cmd Command) {
	slogger().Debug("decoder command", "command", cmd.String())
	switch cmd.Kind {
	case CommandPlay:
		d.control.SetPaused(false)
	case CommandPause:
		d.control.SetPaused(true)
	case CommandSeek:
		if err := d.src.Seek(cmd.PTS); err != nil {
			slogger().Error("seek failed", "pts", cmd.PTS, "error", err)
			return
		}
		frames := d.queue.Flush()
		d.ring.Flush()
		d.clock.Store(cmd.PTS)
		slogger().Debug("decoder seeked", "pts", cmd.PTS, "dropped_frames", frames)
	}
}

func (d *Decoder) push(u Unit) {
	switch u := u.(type) {
	case *Frame:
		if d.dims.CompareAndSwap(nil, &[2]int{u.Width, u.Height}) {
			slogger().Info("stream dimensions", "width", u.Width, "height", u.Height, "planes", u.Planes())
		}
		// The loop only pulls when the queue has room and the decoder is the
		// only producer.
		if err := d.queue.Push(u); err != nil {
			slogger().Warn("frame dropped", "pts", u.PTS, "error", err)
		}
	case AudioChunk:
		if n := d.ring.Push(u); n < len(u) {
			slogger().Warn("audio ring overflow", "dropped", len(u)-n, "total_dropped", d.ring.Dropped())
		}
	}
}

// Close closes the source.
func (d *Decoder) Close() error { return d.src.Close() }
