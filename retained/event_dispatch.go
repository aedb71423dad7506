package retained

// ============================================================================
// Event Router
// ============================================================================

// EventRouter translates raw platform input into DOM events. It tracks the
// pointer position and owns the focus state machine; the hover target and the
// focused node themselves live on the DOM.
//
// The router is driven by the thread that owns the window. RegisterEvent must
// be called with the DOM write lock held.
type EventRouter struct {
	pending []Event

	pointerX, pointerY float32
	pressed            NodeID

	index *Quadtree
}

// NewEventRouter returns a router without a spatial index.
func NewEventRouter() *EventRouter {
	return &EventRouter{}
}

// UseQuadtree enables or disables the spatial index.
func (r *EventRouter) UseQuadtree(on bool) {
	if !on {
		r.index = nil
		return
	}
	if r.index == nil {
		r.index = NewQuadtree(Layout{})
	}
}

// Quadtree returns the spatial index, or nil if disabled.
func (r *EventRouter) Quadtree() *Quadtree { return r.index }

// Refresh updates the spatial index from the current layout. Call it once per
// frame after UpdateState. Caller must hold a DOM lock.
func (r *EventRouter) Refresh(d *DOM) {
	if r.index != nil {
		r.index.Rebuild(d)
	}
}

// Pointer returns the last known pointer position.
func (r *EventRouter) Pointer() (x, y float32) { return r.pointerX, r.pointerY }

// RegisterEvent processes raw and queues the resulting DOM events. It reports
// whether the window needs a repaint.
func (r *EventRouter) RegisterEvent(raw RawEvent, d *DOM) bool {
	switch ev := raw.(type) {
	case PointerMove:
		return r.pointerMove(ev.X, ev.Y, d)
	case PointerButton:
		return r.pointerButton(ev.Button, ev.Pressed, d)
	case Resize:
		return d.SetSize(ev.Width, ev.Height)
	case RedrawRequest:
		d.ForceRedraw()
		return true
	case Close, Wake:
		return false
	}
	return false
}

func (r *EventRouter) pointerMove(x, y float32, d *DOM) bool {
	r.pointerX, r.pointerY = x, y
	target := r.HitTest(d, x, y)

	repaint := false
	if old := d.HoverTarget(); old != target {
		if old != NoNode {
			r.emit(EventMouseLeave, old, MouseButtonNone)
		}
		if target != NoNode {
			r.emit(EventMouseEnter, target, MouseButtonNone)
			r.emit(EventMouseOver, target, MouseButtonNone)
		}
		d.SetHoverTarget(target)
		d.MarkDirty(old, target)
		repaint = true
	}
	if target != NoNode {
		r.emit(EventHover, target, MouseButtonNone)
	}
	return repaint
}

func (r *EventRouter) pointerButton(button MouseButton, pressed bool, d *DOM) bool {
	target := d.HoverTarget()
	if pressed {
		r.pressed = target
		if target != NoNode {
			r.emit(EventMouseDown, target, button)
		}
		return false
	}

	r.pressed = NoNode
	if target == NoNode {
		return r.Blur(d)
	}
	r.emit(EventMouseUp, target, button)
	r.emit(EventClick, target, button)

	n, err := d.Get(target)
	if err != nil || !n.Focusable() {
		return r.Blur(d)
	}
	if d.Focused() == target {
		return false
	}
	if old := d.Focused(); old != NoNode {
		r.emit(EventBlur, old, MouseButtonNone)
	}
	d.SetFocus(target)
	r.emit(EventFocus, target, MouseButtonNone)
	return true
}

// Blur clears focus. It reports whether a node lost focus.
func (r *EventRouter) Blur(d *DOM) bool {
	old := d.Focused()
	if old == NoNode {
		return false
	}
	d.SetFocus(NoNode)
	r.emit(EventBlur, old, MouseButtonNone)
	return true
}

func (r *EventRouter) emit(name string, target NodeID, button MouseButton) {
	r.pending = append(r.pending, Event{
		Name:   name,
		Target: target,
		X:      r.pointerX,
		Y:      r.pointerY,
		Button: button,
	})
}

// Drain returns the queued events and clears the queue.
func (r *EventRouter) Drain() []Event {
	out := r.pending
	r.pending = nil
	return out
}

// ============================================================================
// Hit Testing
// ============================================================================

// HitTest returns the innermost mouse-interested node on the path from the
// root to the point, or NoNode. Children are tested in DOM order and only the
// first containing child is descended into. Box edges are inclusive.
//
// When the spatial index is enabled it is consulted first: if none of its
// candidates is interested the descent is skipped. A candidate is never
// returned without the descent confirming it.
func (r *EventRouter) HitTest(d *DOM, x, y float32) NodeID {
	if r.index != nil && r.index.Len() > 0 {
		candidates := r.index.Query(x, y)
		if !anyInterested(d, candidates) {
			return NoNode
		}
	}

	path := acquireNodeSlice()
	id := hitTestPath(d, x, y, &path)
	releaseNodeSlice(path)
	return id
}

// HitPath returns every node whose box contains the point along the hit-test
// descent.
func (r *EventRouter) HitPath(d *DOM, x, y float32) []NodeID {
	var path []NodeID
	hitTestPath(d, x, y, &path)
	return path
}

func hitTestPath(d *DOM, x, y float32, path *[]NodeID) NodeID {
	id := RootID
	target := NoNode
	var ox, oy float32
	for {
		n, ok := d.nodes[id]
		if !ok || !n.hasStyle {
			return target
		}
		l, err := d.layout.Layout(n.style.Handle)
		if err != nil || !l.Contains(ox, oy, x, y) {
			return target
		}
		*path = append(*path, id)
		if n.interested {
			target = id
		}
		ox, oy = ox+l.X, oy+l.Y

		next := NoNode
		for _, c := range n.children {
			cn, ok := d.nodes[c]
			if !ok || !cn.hasStyle {
				continue
			}
			cl, err := d.layout.Layout(cn.style.Handle)
			if err == nil && cl.Contains(ox, oy, x, y) {
				next = c
				break
			}
		}
		if next == NoNode {
			return target
		}
		id = next
	}
}

func anyInterested(d *DOM, ids []NodeID) bool {
	for _, id := range ids {
		if n, ok := d.nodes[id]; ok && n.interested {
			return true
		}
	}
	return false
}
