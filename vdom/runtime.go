package vdom

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agiangrant/sjik/retained"
)

// ErrShutdown is returned by Run after Shutdown.
var ErrShutdown = errors.New("vdom: runtime shut down")

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// State is passed to every UpdateState call.
	State retained.StateContext

	// OnFrame is called after a render changed the DOM. It typically asks
	// the window to redraw. It runs on the runtime goroutine.
	OnFrame func(changed []retained.NodeID)

	// EventBuffer is the capacity of the event channel (default 64).
	EventBuffer int
}

// Runtime renders a Component into a DOM on a single goroutine. Each wake-up
// delivers pending events, re-renders, diffs, applies the mutations and runs
// the state pass under the DOM write lock.
type Runtime struct {
	dom    *retained.DOM
	render Component
	opts   RuntimeOptions
	differ *Differ
	prev   *VNode

	invalidate chan struct{}
	events     chan retained.Event
	shutdown   chan struct{}
	once       sync.Once
}

// NewRuntime creates a runtime for root. Nothing is rendered until Run.
func NewRuntime(dom *retained.DOM, root Component, opts RuntimeOptions) *Runtime {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Runtime{
		dom:        dom,
		render:     root,
		opts:       opts,
		differ:     NewDiffer(),
		invalidate: make(chan struct{}, 1),
		events:     make(chan retained.Event, opts.EventBuffer),
		shutdown:   make(chan struct{}),
	}
}

// Invalidate schedules a re-render. Calls coalesce until the runtime wakes.
func (r *Runtime) Invalidate() {
	select {
	case r.invalidate <- struct{}{}:
	default:
	}
}

// Send queues an event for delivery. It blocks while the buffer is full and
// returns false once the runtime has shut down.
func (r *Runtime) Send(ev retained.Event) bool {
	select {
	case <-r.shutdown:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.shutdown:
		return false
	}
}

// Shutdown stops Run. It is safe to call more than once.
func (r *Runtime) Shutdown() {
	r.once.Do(func() { close(r.shutdown) })
}

// Run renders once and then serves wake-ups until ctx is done or Shutdown is
// called. A panic during a frame is recovered and returned as an error.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Frame(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.shutdown:
			return ErrShutdown
		case <-r.invalidate:
		case ev := <-r.events:
			r.differ.Dispatch(ev)
			r.drainEvents()
		}
		if err := r.Frame(); err != nil {
			return err
		}
	}
}

// drainEvents delivers events that are already queued so one frame covers
// them all.
func (r *Runtime) drainEvents() {
	for {
		select {
		case ev := <-r.events:
			r.differ.Dispatch(ev)
		default:
			return
		}
	}
}

// Frame renders, diffs and applies one update synchronously.
func (r *Runtime) Frame() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("vdom: frame panicked: %v", p)
			slogger().Error("frame panicked", "panic", p)
		}
	}()

	next := r.render()
	muts := r.differ.Diff(r.prev, next)

	var changed []retained.NodeID
	err = r.dom.Update(func() error {
		if err := r.dom.ApplyMutations(muts); err != nil {
			return err
		}
		var err error
		changed, err = r.dom.UpdateState(r.opts.State)
		return err
	})
	if err != nil {
		return fmt.Errorf("vdom: apply: %w", err)
	}
	r.prev = next

	if len(changed) == 0 {
		return nil
	}
	r.dom.MarkDirty(changed...)
	if r.opts.OnFrame != nil {
		r.opts.OnFrame(changed)
	}
	return nil
}

// Differ returns the runtime's differ. It must only be used from the runtime
// goroutine.
func (r *Runtime) Differ() *Differ { return r.differ }
