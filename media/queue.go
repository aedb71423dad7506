package media

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by FrameQueue.Push when the queue is at capacity.
var ErrQueueFull = errors.New("media: frame queue full")

// FrameQueue is a bounded FIFO of decoded frames shared by the decoder and
// the pacer.
type FrameQueue struct {
	mu     sync.Mutex
	frames []*Frame
	limit  int
}

// NewFrameQueue returns an empty queue holding at most capacity frames.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{frames: make([]*Frame, 0, capacity), limit: capacity}
}

// Push appends f. It never blocks and never drops: a full queue returns
// ErrQueueFull and the caller retries later.
func (q *FrameQueue) Push(f *Frame) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) >= q.limit {
		return ErrQueueFull
	}
	q.frames = append(q.frames, f)
	return nil
}

// Full reports whether the queue is at capacity.
func (q *FrameQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames) >= q.limit
}

// Peek returns the oldest frame without removing it.
func (q *FrameQueue) Peek() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	return q.frames[0], true
}

// Pop removes and returns the oldest frame.
func (q *FrameQueue) Pop() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[0]
	n := copy(q.frames, q.frames[1:])
	q.frames[n] = nil
	q.frames = q.frames[:n]
	return f, true
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int { return q.limit }

// Flush drops every queued frame and returns how many were dropped.
func (q *FrameQueue) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.frames)
	clear(q.frames)
	q.frames = q.frames[:0]
	return n
}
