package retained

import "slices"

const (
	quadCapacity = 8
	quadMaxDepth = 8
)

type quadEntry struct {
	id     NodeID
	bounds Layout
	node   *quadNode
}

type quadNode struct {
	bounds   Layout
	depth    int
	entries  []*quadEntry
	children *[4]quadNode
}

// Quadtree indexes absolute node boxes for point queries. It only narrows the
// candidates of a hit test; the DOM descent confirms every hit.
type Quadtree struct {
	root    quadNode
	entries map[NodeID]*quadEntry
	gen     uint64
	seen    map[NodeID]uint64
}

// NewQuadtree returns an empty index covering bounds. Boxes outside bounds
// are kept at the top level.
func NewQuadtree(bounds Layout) *Quadtree {
	return &Quadtree{
		root:    quadNode{bounds: bounds},
		entries: make(map[NodeID]*quadEntry),
		seen:    make(map[NodeID]uint64),
	}
}

// Len returns the number of indexed nodes.
func (q *Quadtree) Len() int { return len(q.entries) }

// Bounds returns the stored box of id.
func (q *Quadtree) Bounds(id NodeID) (Layout, bool) {
	e, ok := q.entries[id]
	if !ok {
		return Layout{}, false
	}
	return e.bounds, true
}

// Update stores bounds for id. It reports whether the index changed; an entry
// with identical bounds is left in place.
func (q *Quadtree) Update(id NodeID, bounds Layout) bool {
	q.seen[id] = q.gen
	if e, ok := q.entries[id]; ok {
		if e.bounds == bounds {
			return false
		}
		e.node.remove(e)
		e.bounds = bounds
		q.root.insert(e)
		return true
	}
	e := &quadEntry{id: id, bounds: bounds}
	q.entries[id] = e
	q.root.insert(e)
	return true
}

// Remove drops id from the index.
func (q *Quadtree) Remove(id NodeID) {
	e, ok := q.entries[id]
	if !ok {
		return
	}
	e.node.remove(e)
	delete(q.entries, id)
	delete(q.seen, id)
}

// Rebuild refreshes the index from the DOM's computed layout. Entries of
// nodes that no longer exist are dropped. Caller must hold a DOM lock.
func (q *Quadtree) Rebuild(d *DOM) {
	q.gen++
	vp := d.Viewport()
	if q.root.bounds.Width != vp.Width || q.root.bounds.Height != vp.Height {
		q.root = quadNode{bounds: Layout{Width: vp.Width, Height: vp.Height}}
		for _, e := range q.entries {
			q.root.insert(e)
		}
	}

	var walk func(id NodeID, ox, oy float32)
	walk = func(id NodeID, ox, oy float32) {
		n, ok := d.nodes[id]
		if !ok || !n.hasStyle {
			return
		}
		l, err := d.layout.Layout(n.style.Handle)
		if err != nil {
			return
		}
		l.X += ox
		l.Y += oy
		q.Update(id, l)
		for _, c := range n.children {
			walk(c, l.X, l.Y)
		}
	}
	walk(RootID, 0, 0)

	for id, g := range q.seen {
		if g != q.gen {
			q.Remove(id)
		}
	}
}

// Query returns the IDs whose stored box contains (x, y), in ascending order.
func (q *Quadtree) Query(x, y float32) []NodeID {
	var out []NodeID
	q.root.query(x, y, &out)
	slices.Sort(out)
	return out
}

func (n *quadNode) fits(b Layout) bool {
	return b.X >= n.bounds.X && b.Y >= n.bounds.Y &&
		b.X+b.Width <= n.bounds.X+n.bounds.Width &&
		b.Y+b.Height <= n.bounds.Y+n.bounds.Height
}

func (n *quadNode) insert(e *quadEntry) {
	if n.children != nil {
		for i := range n.children {
			if c := &n.children[i]; c.fits(e.bounds) {
				c.insert(e)
				return
			}
		}
	}
	n.entries = append(n.entries, e)
	e.node = n
	if n.children == nil && len(n.entries) > quadCapacity && n.depth < quadMaxDepth {
		n.split()
	}
}

func (n *quadNode) split() {
	hw, hh := n.bounds.Width/2, n.bounds.Height/2
	x, y := n.bounds.X, n.bounds.Y
	n.children = &[4]quadNode{
		{bounds: Layout{X: x, Y: y, Width: hw, Height: hh}, depth: n.depth + 1},
		{bounds: Layout{X: x + hw, Y: y, Width: hw, Height: hh}, depth: n.depth + 1},
		{bounds: Layout{X: x, Y: y + hh, Width: hw, Height: hh}, depth: n.depth + 1},
		{bounds: Layout{X: x + hw, Y: y + hh, Width: hw, Height: hh}, depth: n.depth + 1},
	}
	entries := n.entries
	n.entries = nil
	for _, e := range entries {
		n.insert(e)
	}
}

func (n *quadNode) remove(e *quadEntry) {
	n.entries = slices.DeleteFunc(n.entries, func(x *quadEntry) bool { return x == e })
	e.node = nil
}

func (n *quadNode) query(x, y float32, out *[]NodeID) {
	for _, e := range n.entries {
		if e.bounds.Contains(0, 0, x, y) {
			*out = append(*out, e.id)
		}
	}
	if n.children == nil {
		return
	}
	for i := range n.children {
		c := &n.children[i]
		if c.bounds.Contains(0, 0, x, y) {
			c.query(x, y, out)
		}
	}
}
