package media

import "sync/atomic"

// AudioRing is a lock-free single-producer single-consumer ring of samples.
// The decoder is the only producer; the audio output is the only consumer.
type AudioRing struct {
	buf []Sample

	// head and tail grow monotonically; slots are taken modulo len(buf).
	head atomic.Uint64
	tail atomic.Uint64

	// flushTo is the tail position of the last Flush, or -1.
	flushTo atomic.Int64
	dropped atomic.Uint64
}

// NewAudioRing returns a ring holding capacity samples.
func NewAudioRing(capacity int) *AudioRing {
	if capacity < 1 {
		capacity = 1
	}
	r := &AudioRing{buf: make([]Sample, capacity)}
	r.flushTo.Store(-1)
	return r
}

// Cap returns the ring capacity in samples.
func (r *AudioRing) Cap() int { return len(r.buf) }

// Len returns the number of buffered samples.
func (r *AudioRing) Len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

// Dropped returns the total number of samples rejected because the ring was
// full.
func (r *AudioRing) Dropped() uint64 { return r.dropped.Load() }

// Push appends as many samples as fit and returns that count. The rest are
// dropped and counted. Producer side only.
func (r *AudioRing) Push(samples []Sample) int {
	tail := r.tail.Load()
	free := uint64(len(r.buf)) - (tail - r.head.Load())
	n := min(uint64(len(samples)), free)
	size := uint64(len(r.buf))
	for i := uint64(0); i < n; {
		at := (tail + i) % size
		c := copy(r.buf[at:], samples[i:n])
		i += uint64(c)
	}
	r.tail.Store(tail + n)
	if dropped := uint64(len(samples)) - n; dropped > 0 {
		r.dropped.Add(dropped)
	}
	return int(n)
}

// Pop moves up to len(dst) samples into dst and returns the count. Consumer
// side only.
func (r *AudioRing) Pop(dst []Sample) int {
	head := r.head.Load()
	if mark := r.flushTo.Swap(-1); mark >= 0 && uint64(mark) > head {
		head = uint64(mark)
	}
	avail := r.tail.Load() - head
	n := min(uint64(len(dst)), avail)
	size := uint64(len(r.buf))
	for i := uint64(0); i < n; {
		at := (head + i) % size
		end := min(size, at+(n-i))
		c := copy(dst[i:n], r.buf[at:end])
		i += uint64(c)
	}
	r.head.Store(head + n)
	return int(n)
}

// Flush discards every sample pushed so far. The consumer applies it on its
// next Pop. Producer side only.
func (r *AudioRing) Flush() {
	r.flushTo.Store(int64(r.tail.Load()))
}
