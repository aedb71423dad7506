package media

import (
	"encoding/binary"
	"math"
)

// AudioOutput drains the audio ring as little-endian float32 interleaved
// samples. It advances the clock to the timestamp of the last sample played.
type AudioOutput struct {
	ring    *AudioRing
	clock   *Clock
	control *Control
	buf     []Sample
}

// NewAudioOutput returns a reader over d's audio.
func NewAudioOutput(d *Decoder) *AudioOutput {
	return &AudioOutput{ring: d.Ring(), clock: d.Clock(), control: d.Control()}
}

// Read fills p with whole samples. While paused, or when the ring runs dry,
// it writes silence. It never returns an error.
func (o *AudioOutput) Read(p []byte) (int, error) {
	n := len(p) / 4
	out := p[:n*4]
	if o.control.Paused() {
		clear(out)
		return len(out), nil
	}
	if cap(o.buf) < n {
		o.buf = make([]Sample, n)
	}
	buf := o.buf[:n]
	got := o.ring.Pop(buf)
	for i := range got {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(buf[i].Value))
	}
	clear(out[got*4:])
	if got > 0 {
		if pts := buf[got-1].PTS; pts != 0 {
			o.clock.Store(pts)
		}
	}
	return len(out), nil
}
