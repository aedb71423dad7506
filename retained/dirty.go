package retained

import (
	"maps"
	"slices"
)

// ============================================================================
// Dirty Set
// ============================================================================

// DirtyNodes is the result of draining the dirty set: either every node
// (All) or a specific set.
type DirtyNodes struct {
	All   bool
	Nodes map[NodeID]struct{}
}

// Empty reports whether nothing needs repainting.
func (d DirtyNodes) Empty() bool {
	return !d.All && len(d.Nodes) == 0
}

// Has reports whether id must be repainted.
func (d DirtyNodes) Has(id NodeID) bool {
	if d.All {
		return true
	}
	_, ok := d.Nodes[id]
	return ok
}

// Sorted returns the dirty IDs in ascending order. It is nil for All.
func (d DirtyNodes) Sorted() []NodeID {
	if d.All {
		return nil
	}
	return slices.Sorted(maps.Keys(d.Nodes))
}

// MarkDirty adds ids to the dirty set. It is safe to call without holding the
// DOM lock.
func (d *DOM) MarkDirty(ids ...NodeID) {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()
	for _, id := range ids {
		if id == NoNode {
			continue
		}
		d.dirty[id] = struct{}{}
	}
}

// Dirty reports whether the next Clean would return a non-empty set.
func (d *DOM) Dirty() bool {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()
	return d.forceRedraw || len(d.dirty) > 0
}

// ForceRedraw makes the next Clean report All.
func (d *DOM) ForceRedraw() {
	d.dirtyMu.Lock()
	d.forceRedraw = true
	d.dirtyMu.Unlock()
}

// Clean drains the dirty set. It returns All when a redraw was forced and
// otherwise the (possibly empty) set of marked nodes.
func (d *DOM) Clean() DirtyNodes {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()

	var out DirtyNodes
	if d.forceRedraw {
		out.All = true
	} else {
		out.Nodes = d.dirty
	}
	d.dirty = make(map[NodeID]struct{})
	d.forceRedraw = false
	return out
}

// SetSize stores the viewport size. Zero sizes (minimized windows) are
// ignored. Caller must hold the write lock.
func (d *DOM) SetSize(width, height float32) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	size := Size{Width: width, Height: height}
	if d.viewport != size {
		d.viewport = size
		d.sizeChanged = true
	}
	d.ForceRedraw()
	return true
}
