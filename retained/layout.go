package retained

import (
	"errors"
	"fmt"
	"slices"

	"github.com/agiangrant/sjik/tw"
)

// ErrLayoutNodeNotFound is returned for unknown or removed layout handles.
var ErrLayoutNodeNotFound = errors.New("layout node not found")

// LayoutHandle is an opaque reference into the layout tree. Handles are never
// reused after Remove.
type LayoutHandle uint64

// NoLayout is the zero handle; it never refers to a node.
const NoLayout LayoutHandle = 0

// Size is an available or computed size in pixels.
type Size struct {
	Width  float32
	Height float32
}

// Layout is the computed box of a node. X and Y are relative to the parent's
// border box.
type Layout struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Contains reports whether the point lies inside the box translated by
// (ox, oy). Edges are inclusive.
func (l Layout) Contains(ox, oy, x, y float32) bool {
	return x >= ox+l.X && x <= ox+l.X+l.Width &&
		y >= oy+l.Y && y <= oy+l.Y+l.Height
}

type layoutNode struct {
	style    tw.LayoutStyle
	children []LayoutHandle
	parent   LayoutHandle
	layout   Layout
	dirty    bool
}

// LayoutTree is a flexbox solver over handle-addressed nodes. It is not safe
// for concurrent use; the DOM lock guards it.
type LayoutTree struct {
	nodes     map[LayoutHandle]*layoutNode
	next      LayoutHandle
	lastRoot  LayoutHandle
	lastAvail Size
}

// NewLayoutTree returns an empty tree.
func NewLayoutTree() *LayoutTree {
	return &LayoutTree{nodes: make(map[LayoutHandle]*layoutNode)}
}

// Len returns the number of live nodes.
func (t *LayoutTree) Len() int { return len(t.nodes) }

// NewLeaf creates a node without children.
func (t *LayoutTree) NewLeaf(style tw.LayoutStyle) LayoutHandle {
	t.next++
	h := t.next
	t.nodes[h] = &layoutNode{style: style, dirty: true}
	return h
}

// NewWithChildren creates a node and attaches children to it. Children that
// already have a parent are moved.
func (t *LayoutTree) NewWithChildren(style tw.LayoutStyle, children []LayoutHandle) (LayoutHandle, error) {
	h := t.NewLeaf(style)
	if _, err := t.SetChildren(h, children); err != nil {
		delete(t.nodes, h)
		return NoLayout, err
	}
	return h, nil
}

func (t *LayoutTree) node(h LayoutHandle) (*layoutNode, error) {
	n, ok := t.nodes[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrLayoutNodeNotFound, h)
	}
	return n, nil
}

// Style returns the style of h.
func (t *LayoutTree) Style(h LayoutHandle) (tw.LayoutStyle, error) {
	n, err := t.node(h)
	if err != nil {
		return tw.LayoutStyle{}, err
	}
	return n.style, nil
}

// SetStyle replaces the style of h. It reports whether the style differed.
func (t *LayoutTree) SetStyle(h LayoutHandle, style tw.LayoutStyle) (bool, error) {
	n, err := t.node(h)
	if err != nil {
		return false, err
	}
	if n.style == style {
		return false, nil
	}
	n.style = style
	t.markDirty(h)
	return true, nil
}

// Children returns a copy of the child handles of h.
func (t *LayoutTree) Children(h LayoutHandle) ([]LayoutHandle, error) {
	n, err := t.node(h)
	if err != nil {
		return nil, err
	}
	return slices.Clone(n.children), nil
}

// SetChildren replaces the children of h. It reports whether the list differed.
func (t *LayoutTree) SetChildren(h LayoutHandle, children []LayoutHandle) (bool, error) {
	n, err := t.node(h)
	if err != nil {
		return false, err
	}
	if slices.Equal(n.children, children) {
		return false, nil
	}
	for _, c := range children {
		if _, err := t.node(c); err != nil {
			return false, err
		}
	}

	for _, c := range n.children {
		if cn, ok := t.nodes[c]; ok && cn.parent == h {
			cn.parent = NoLayout
		}
	}
	for _, c := range children {
		cn := t.nodes[c]
		if cn.parent != NoLayout && cn.parent != h {
			if old, ok := t.nodes[cn.parent]; ok {
				old.children = slices.DeleteFunc(old.children, func(x LayoutHandle) bool { return x == c })
				t.markDirty(cn.parent)
			}
		}
		cn.parent = h
	}
	n.children = slices.Clone(children)
	t.markDirty(h)
	return true, nil
}

// Remove deletes h. Its children are detached but not removed.
func (t *LayoutTree) Remove(h LayoutHandle) error {
	n, err := t.node(h)
	if err != nil {
		return err
	}
	if p, ok := t.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(x LayoutHandle) bool { return x == h })
		t.markDirty(n.parent)
	}
	for _, c := range n.children {
		if cn, ok := t.nodes[c]; ok && cn.parent == h {
			cn.parent = NoLayout
		}
	}
	delete(t.nodes, h)
	if t.lastRoot == h {
		t.lastRoot = NoLayout
	}
	return nil
}

// Layout returns the last computed layout of h.
func (t *LayoutTree) Layout(h LayoutHandle) (Layout, error) {
	n, err := t.node(h)
	if err != nil {
		return Layout{}, err
	}
	return n.layout, nil
}

// Dirty reports whether h needs a layout pass.
func (t *LayoutTree) Dirty(h LayoutHandle) bool {
	n, ok := t.nodes[h]
	return ok && n.dirty
}

// markDirty marks h and its ancestors as needing layout.
func (t *LayoutTree) markDirty(h LayoutHandle) {
	for h != NoLayout {
		n, ok := t.nodes[h]
		if !ok || n.dirty {
			return
		}
		n.dirty = true
		h = n.parent
	}
}

// ComputeLayout lays out the subtree under root within the available size.
// It returns the handles whose computed box changed. When nothing is dirty
// and the available size is unchanged, it does no work.
func (t *LayoutTree) ComputeLayout(root LayoutHandle, available Size) ([]LayoutHandle, error) {
	n, err := t.node(root)
	if err != nil {
		return nil, err
	}
	if !n.dirty && t.lastRoot == root && t.lastAvail == available {
		return nil, nil
	}
	t.lastRoot = root
	t.lastAvail = available

	var changed []LayoutHandle
	w := resolveSize(n.style.Width, available.Width)
	h := resolveSize(n.style.Height, available.Height)
	if w < 0 || h < 0 {
		iw, ih := t.intrinsicSize(root, available.Width, available.Height)
		if w < 0 {
			w = iw
		}
		if h < 0 {
			h = ih
		}
	}
	t.place(root, 0, 0, w, h, &changed)
	return changed, nil
}

// resolveSize returns the pixel size of d against the parent's size, or -1
// when d is auto.
func resolveSize(d tw.Dimension, parent float32) float32 {
	switch d.Kind {
	case tw.DimLength:
		return d.Value
	case tw.DimPercent:
		return d.Value * parent
	}
	return -1
}

// place assigns the final box of h and lays out its children.
func (t *LayoutTree) place(h LayoutHandle, x, y, w, hgt float32, changed *[]LayoutHandle) {
	n := t.nodes[h]
	box := Layout{X: x, Y: y, Width: max(w, 0), Height: max(hgt, 0)}
	if n.layout != box {
		n.layout = box
		*changed = append(*changed, h)
	}
	n.dirty = false
	t.layoutChildren(n, box.Width, box.Height, changed)
}

// intrinsicSize returns the content-based size of h, including padding.
// Explicit lengths win; percentages resolve against the available size.
func (t *LayoutTree) intrinsicSize(h LayoutHandle, availW, availH float32) (float32, float32) {
	n := t.nodes[h]
	if n.style.Display == tw.DisplayNone {
		return 0, 0
	}
	w := resolveSize(n.style.Width, availW)
	hgt := resolveSize(n.style.Height, availH)
	if w >= 0 && hgt >= 0 {
		return w, hgt
	}

	pad := n.style.Padding
	innerW := availW - pad.Horizontal()
	if w >= 0 {
		innerW = w - pad.Horizontal()
	}
	innerH := availH - pad.Vertical()
	if hgt >= 0 {
		innerH = hgt - pad.Vertical()
	}

	row := n.style.Direction == tw.FlexRow
	var mainSum, crossMax float32
	var count int
	for _, c := range n.children {
		cn := t.nodes[c]
		if cn.style.Display == tw.DisplayNone {
			continue
		}
		cw, ch := t.intrinsicSize(c, innerW, innerH)
		if row {
			mainSum += cw
			crossMax = max(crossMax, ch)
		} else {
			mainSum += ch
			crossMax = max(crossMax, cw)
		}
		count++
	}
	if count > 1 {
		if row {
			mainSum += n.style.Gap.X * float32(count-1)
		} else {
			mainSum += n.style.Gap.Y * float32(count-1)
		}
	}

	contentW, contentH := mainSum, crossMax
	if !row {
		contentW, contentH = crossMax, mainSum
	}
	if w < 0 {
		w = contentW + pad.Horizontal()
	}
	if hgt < 0 {
		hgt = contentH + pad.Vertical()
	}
	return w, hgt
}

// flexItem is a child being arranged along a flex line.
type flexItem struct {
	handle    LayoutHandle
	main      float32
	cross     float32
	autoCross bool
}

// flexLine is a run of items that share the cross axis.
type flexLine struct {
	items    []flexItem
	mainSum  float32
	crossMax float32
}

// layoutChildren arranges the children of n inside a w×h border box.
func (t *LayoutTree) layoutChildren(n *layoutNode, w, h float32, changed *[]LayoutHandle) {
	if len(n.children) == 0 {
		return
	}
	st := n.style
	pad := st.Padding
	contentW := max(w-pad.Horizontal(), 0)
	contentH := max(h-pad.Vertical(), 0)

	row := st.Direction == tw.FlexRow
	mainSize, crossSize := contentW, contentH
	mainGap, crossGap := st.Gap.X, st.Gap.Y
	if !row {
		mainSize, crossSize = contentH, contentW
		mainGap, crossGap = st.Gap.Y, st.Gap.X
	}

	// Resolve item sizes along both axes
	items := make([]flexItem, 0, len(n.children))
	for _, c := range n.children {
		cn := t.nodes[c]
		if cn.style.Display == tw.DisplayNone {
			t.place(c, 0, 0, 0, 0, changed)
			continue
		}
		cw := resolveSize(cn.style.Width, contentW)
		ch := resolveSize(cn.style.Height, contentH)
		if cw < 0 || ch < 0 {
			iw, ih := t.intrinsicSize(c, contentW, contentH)
			if cw < 0 {
				cw = iw
			}
			if ch < 0 {
				ch = ih
			}
		}
		item := flexItem{handle: c, main: cw, cross: ch, autoCross: cn.style.Height.IsAuto()}
		if !row {
			item.main, item.cross = ch, cw
			item.autoCross = cn.style.Width.IsAuto()
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return
	}

	// Group into lines
	var lines []flexLine
	if st.Wrap == tw.FlexNoWrap {
		lines = append(lines, flexLine{items: items})
	} else {
		var cur flexLine
		var used float32
		for _, it := range items {
			need := it.main
			if len(cur.items) > 0 {
				need += mainGap
			}
			if len(cur.items) > 0 && used+need > mainSize {
				lines = append(lines, cur)
				cur = flexLine{}
				used = 0
				need = it.main
			}
			cur.items = append(cur.items, it)
			used += need
		}
		lines = append(lines, cur)
	}
	for i := range lines {
		l := &lines[i]
		for j, it := range l.items {
			l.mainSum += it.main
			if j > 0 {
				l.mainSum += mainGap
			}
			l.crossMax = max(l.crossMax, it.cross)
		}
	}
	// A single unwrapped line spans the whole cross axis
	if len(lines) == 1 && st.Wrap == tw.FlexNoWrap {
		lines[0].crossMax = crossSize
	}
	if st.Wrap == tw.FlexWrapReverse {
		slices.Reverse(lines)
	}

	crossPos := float32(0)
	for _, l := range lines {
		free := mainSize - l.mainSum
		start, between := justifyOffsets(st.Justify, free, len(l.items))

		mainPos := start
		for _, it := range l.items {
			cross := it.cross
			var crossOff float32
			switch st.Align {
			case tw.AlignStretch:
				if it.autoCross {
					cross = l.crossMax
				}
			case tw.AlignEnd:
				crossOff = l.crossMax - cross
			case tw.AlignCenter:
				crossOff = (l.crossMax - cross) / 2
			}

			x, y := pad.Left+mainPos, pad.Top+crossPos+crossOff
			cw, ch := it.main, cross
			if !row {
				x, y = pad.Left+crossPos+crossOff, pad.Top+mainPos
				cw, ch = cross, it.main
			}
			t.place(it.handle, x, y, cw, ch, changed)

			mainPos += it.main + mainGap + between
		}
		crossPos += l.crossMax + crossGap
	}
}

// justifyOffsets returns the leading offset and the extra space inserted
// between adjacent items for a line with the given free main-axis space.
func justifyOffsets(j tw.JustifyContent, free float32, count int) (start, between float32) {
	if free <= 0 || count == 0 {
		return 0, 0
	}
	switch j {
	case tw.JustifyEnd:
		return free, 0
	case tw.JustifyCenter:
		return free / 2, 0
	case tw.JustifyBetween:
		if count == 1 {
			return 0, 0
		}
		return 0, free / float32(count-1)
	case tw.JustifyAround:
		each := free / float32(count)
		return each / 2, each
	case tw.JustifyEvenly:
		each := free / float32(count+1)
		return each, each
	}
	// start and stretch
	return 0, 0
}
