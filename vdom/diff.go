package vdom

import (
	"slices"

	"github.com/agiangrant/sjik/retained"
)

// Differ turns successive VNode trees into mutation logs. It assigns node IDs
// and remembers the handlers of the mounted tree for event delivery. A Differ
// is owned by a single goroutine.
type Differ struct {
	next     retained.NodeID
	handlers map[retained.NodeID]map[string]Handler
	muts     []retained.Mutation
}

// NewDiffer returns a differ whose first mounted node receives the ID after
// retained.RootID.
func NewDiffer() *Differ {
	return &Differ{
		next:     retained.RootID,
		handlers: make(map[retained.NodeID]map[string]Handler),
	}
}

// Diff returns the mutations that turn the DOM built from prev into one built
// from next. A nil prev mounts next under the root. next must be a fresh tree;
// prev must be the tree passed as next to the previous call.
func (d *Differ) Diff(prev, next *VNode) []retained.Mutation {
	d.muts = nil
	switch {
	case prev == nil && next != nil:
		d.create(next, func(spec retained.NodeSpec) retained.Mutation {
			return retained.AppendChild{Parent: retained.RootID, Node: spec}
		})
	case prev != nil && next == nil:
		d.muts = append(d.muts, retained.Remove{ID: prev.id})
		d.forget(prev)
	case prev != nil && next != nil:
		d.diffNode(prev, next)
	}
	return d.muts
}

// Handler returns the handler registered by id for the named event.
func (d *Differ) Handler(id retained.NodeID, name string) (Handler, bool) {
	h, ok := d.handlers[id][name]
	return h, ok
}

// Dispatch calls the handler of ev's target, if any. It reports whether a
// handler ran.
func (d *Differ) Dispatch(ev retained.Event) bool {
	h, ok := d.Handler(ev.Target, ev.Name)
	if !ok || h == nil {
		return false
	}
	h(ev)
	return true
}

func (d *Differ) allocID() retained.NodeID {
	d.next++
	return d.next
}

// create mounts the subtree n. place builds the mutation that attaches n
// itself; descendants are appended in pre-order.
func (d *Differ) create(n *VNode, place func(retained.NodeSpec) retained.Mutation) {
	n.id = d.allocID()
	d.muts = append(d.muts, place(n.spec()))
	d.remember(n)
	for _, c := range n.Children {
		d.create(c, func(spec retained.NodeSpec) retained.Mutation {
			if spec.Kind == retained.KindPlaceholder {
				return retained.CreatePlaceholder{Parent: n.id, ID: spec.ID}
			}
			return retained.AppendChild{Parent: n.id, Node: spec}
		})
	}
}

func (d *Differ) remember(n *VNode) {
	if len(n.Listeners) == 0 {
		delete(d.handlers, n.id)
		return
	}
	d.handlers[n.id] = n.Listeners
}

// forget drops the handlers of a removed subtree.
func (d *Differ) forget(n *VNode) {
	delete(d.handlers, n.id)
	for _, c := range n.Children {
		d.forget(c)
	}
}

func sameType(a, b *VNode) bool {
	if a.Kind != b.Kind {
		return false
	}
	return a.Kind != retained.KindElement || a.Tag == b.Tag
}

func (d *Differ) diffNode(old, n *VNode) {
	if !sameType(old, n) {
		d.forget(old)
		d.create(n, func(spec retained.NodeSpec) retained.Mutation {
			return retained.ReplaceWith{ID: old.id, Node: spec}
		})
		return
	}
	n.id = old.id

	switch n.Kind {
	case retained.KindText:
		if old.Text != n.Text {
			d.muts = append(d.muts, retained.SetText{ID: n.id, Text: n.Text})
		}
		return
	case retained.KindPlaceholder:
		return
	}

	d.diffAttrs(old, n)
	d.diffListeners(old, n)
	d.remember(n)

	if keyed(old.Children) && keyed(n.Children) {
		d.diffKeyed(n, old.Children, n.Children)
	} else {
		d.diffPositional(n, old.Children, n.Children)
	}
}

func (d *Differ) diffAttrs(old, n *VNode) {
	for _, a := range n.Attrs {
		if v, ok := old.Attr(a.Name); !ok || v != a.Value {
			d.muts = append(d.muts, retained.SetAttribute{ID: n.id, Name: a.Name, Value: a.Value})
		}
	}
	for _, a := range old.Attrs {
		if _, ok := n.Attr(a.Name); !ok {
			d.muts = append(d.muts, retained.SetAttribute{ID: n.id, Name: a.Name})
		}
	}
}

func (d *Differ) diffListeners(old, n *VNode) {
	for _, name := range n.listenerNames() {
		if _, ok := old.Listeners[name]; !ok {
			d.muts = append(d.muts, retained.NewEventListener{ID: n.id, Name: name})
		}
	}
	for _, name := range old.listenerNames() {
		if _, ok := n.Listeners[name]; !ok {
			d.muts = append(d.muts, retained.RemoveEventListener{ID: n.id, Name: name})
		}
	}
}

func (d *Differ) diffPositional(parent *VNode, old, next []*VNode) {
	shared := min(len(old), len(next))
	for i := range shared {
		d.diffNode(old[i], next[i])
	}
	for _, o := range old[shared:] {
		d.muts = append(d.muts, retained.Remove{ID: o.id})
		d.forget(o)
	}
	for _, c := range next[shared:] {
		d.create(c, func(spec retained.NodeSpec) retained.Mutation {
			if spec.Kind == retained.KindPlaceholder {
				return retained.CreatePlaceholder{Parent: parent.id, ID: spec.ID}
			}
			return retained.AppendChild{Parent: parent.id, Node: spec}
		})
	}
}

// keyed reports whether every child carries a key.
func keyed(children []*VNode) bool {
	if len(children) == 0 {
		return false
	}
	for _, c := range children {
		if c.Key == "" {
			return false
		}
	}
	return true
}

// diffKeyed matches children by key. Unmatched old children are removed, and
// the survivors are reordered with moves so that the DOM order equals next.
func (d *Differ) diffKeyed(parent *VNode, old, next []*VNode) {
	byKey := make(map[string]*VNode, len(old))
	for _, o := range old {
		if _, dup := byKey[o.Key]; !dup {
			byKey[o.Key] = o
		}
	}

	matched := make(map[*VNode]*VNode, len(next))
	for _, c := range next {
		if o, ok := byKey[c.Key]; ok && matched[o] == nil {
			matched[o] = c
			d.diffNode(o, c)
		}
	}

	// cur mirrors the DOM child order after removals. A replaced child keeps
	// its slot under the new ID.
	var cur []retained.NodeID
	for _, o := range old {
		if c := matched[o]; c != nil {
			cur = append(cur, c.id)
			continue
		}
		d.muts = append(d.muts, retained.Remove{ID: o.id})
		d.forget(o)
	}

	anchor := retained.NoNode
	for i := len(next) - 1; i >= 0; i-- {
		c := next[i]
		place := func(spec retained.NodeSpec) retained.Mutation {
			if anchor == retained.NoNode {
				return retained.AppendChild{Parent: parent.id, Node: spec}
			}
			return retained.InsertBefore{Anchor: anchor, Node: spec}
		}

		if c.id == retained.NoNode {
			d.create(c, place)
			cur = insertBefore(cur, c.id, anchor)
		} else if !followedBy(cur, c.id, anchor) {
			d.muts = append(d.muts, place(retained.NodeSpec{ID: c.id}))
			cur = insertBefore(slices.DeleteFunc(cur, func(id retained.NodeID) bool { return id == c.id }), c.id, anchor)
		}
		anchor = c.id
	}
}

// followedBy reports whether id sits immediately before anchor in ids, or is
// last when anchor is NoNode.
func followedBy(ids []retained.NodeID, id, anchor retained.NodeID) bool {
	i := slices.Index(ids, id)
	if i < 0 {
		return false
	}
	if anchor == retained.NoNode {
		return i == len(ids)-1
	}
	return i+1 < len(ids) && ids[i+1] == anchor
}

func insertBefore(ids []retained.NodeID, id, anchor retained.NodeID) []retained.NodeID {
	if anchor == retained.NoNode {
		return append(ids, id)
	}
	i := slices.Index(ids, anchor)
	if i < 0 {
		return append(ids, id)
	}
	return slices.Insert(ids, i, id)
}
