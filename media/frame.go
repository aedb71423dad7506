// Package media decodes audio and video off the render thread and paces
// decoded frames against the audio clock.
//
// A Decoder pulls Units from a Source and fills a bounded FrameQueue and an
// AudioRing. AudioOutput drains the ring into the audio device and advances
// the shared Clock. A Pacer presents each queued frame when the clock reaches
// its timestamp. Timestamps are nanoseconds throughout.
package media

// Frame is a decoded video frame with its planes stored back to back.
type Frame struct {
	// Data holds the planes in order, each Linesizes[i] bytes per row.
	Data []byte

	// Linesizes are the positive per-plane strides in bytes.
	Linesizes []int

	Width  int
	Height int

	// PTS is the presentation time in nanoseconds.
	PTS int64
}

// Planes returns the number of planes in the frame.
func (f *Frame) Planes() int { return len(f.Linesizes) }

// Sample is one interleaved audio sample with the presentation time of the
// frame it was decoded from.
type Sample struct {
	PTS   int64
	Value float32
}

// Unit is one item produced by a Source: a *Frame or an AudioChunk.
type Unit interface {
	unit()
}

func (*Frame) unit() {}

// AudioChunk is a run of interleaved samples.
type AudioChunk []Sample

func (AudioChunk) unit() {}
