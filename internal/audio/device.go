// Package audio plays interleaved float32 samples on the platform audio
// device.
package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Options configures the output device.
type Options struct {
	SampleRate int
	Channels   int

	// Buffer is the device buffer duration. Zero uses the driver default.
	Buffer time.Duration
}

// DefaultOptions matches the decoder's resampled output.
func DefaultOptions() Options {
	return Options{SampleRate: 48000, Channels: 2}
}

// Device is an open audio output streaming from one reader.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
}

// Open creates the audio context, waits for it to become ready and attaches
// a paused player reading float32 LE samples from src. Only one Device can
// exist per process.
func Open(src io.Reader, opts Options) (*Device, error) {
	if opts.SampleRate <= 0 || opts.Channels <= 0 {
		d := DefaultOptions()
		opts.SampleRate, opts.Channels = d.SampleRate, d.Channels
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: opts.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   opts.Buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open device: %w", err)
	}
	<-ready
	return &Device{ctx: ctx, player: ctx.NewPlayer(src)}, nil
}

// Play starts or resumes pulling samples.
func (d *Device) Play() { d.player.Play() }

// Pause stops pulling samples.
func (d *Device) Pause() { d.player.Pause() }

// Err returns the first error reported by the player or the context.
func (d *Device) Err() error {
	if err := d.player.Err(); err != nil {
		return err
	}
	return d.ctx.Err()
}

// Close stops playback and releases the player. The oto context itself
// lives until the process exits.
func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("audio: close player: %w", err)
	}
	return d.ctx.Suspend()
}
