package retained

import (
	"maps"
	"slices"

	"github.com/agiangrant/sjik/text"
	"github.com/agiangrant/sjik/tw"
)

// ============================================================================
// Incremental State Pass
// ============================================================================

// Listener names that make a node a hit-test target.
var mouseEvents = []string{
	"hover", "mouseleave", "mouseenter", "click", "mouseup", "mouseclick", "mouseover",
}

// StateContext carries the external inputs of UpdateState.
type StateContext struct {
	// Measurer sizes text nodes. A nil Measurer gives text zero width.
	Measurer text.Measurer

	// Images loads img sources. A nil loader leaves images unresolved.
	Images ImageLoader
}

// statePass holds the bookkeeping of a single UpdateState call.
type statePass struct {
	d       *DOM
	ctx     StateContext
	changed map[NodeID]struct{}
	restyle map[NodeID]struct{}
}

// UpdateState recomputes derived components of every node affected by
// mutations, hover changes or resizes since the last call, pushes styles into
// the layout tree and computes layout at the viewport size. It returns the
// nodes whose style, image, interest, hover state or computed box changed,
// in ascending ID order. Caller must hold the write lock.
func (d *DOM) UpdateState(ctx StateContext) ([]NodeID, error) {
	p := &statePass{
		d:       d,
		ctx:     ctx,
		changed: make(map[NodeID]struct{}),
		restyle: make(map[NodeID]struct{}),
	}

	order := d.preorder()
	for _, id := range order {
		p.topDown(d.nodes[id])
	}
	for _, id := range slices.Backward(order) {
		if err := p.bottomUp(d.nodes[id]); err != nil {
			return nil, err
		}
	}
	if err := p.computeLayout(); err != nil {
		return nil, err
	}

	for _, id := range order {
		d.nodes[id].pending = false
	}
	d.sizeChanged = false

	out := slices.Sorted(maps.Keys(p.changed))
	if len(out) > 0 {
		slogger().Debug("state pass", "changed", len(out), "nodes", len(d.nodes))
	}
	return out, nil
}

// topDown computes the components that depend on the parent: font, hover,
// mouse interest, focusability and the image. Nodes whose inputs changed are
// restyled.
func (p *statePass) topDown(n *Node) {
	parentFont := tw.DefaultFont()
	parentHovered := false
	if parent, ok := p.d.nodes[n.parent]; ok {
		parentFont = parent.font
		parentHovered = parent.hovered
		if _, ok := p.restyle[parent.ID]; ok && parent.font != n.font {
			n.pending = true
		}
	}
	if n.ID == RootID && p.d.sizeChanged {
		n.pending = true
	}

	hovered := p.d.hoverTarget == n.ID || parentHovered
	if hovered != n.hovered {
		n.hovered = hovered
		n.pending = true
		p.changed[n.ID] = struct{}{}
	}

	if n.Kind == KindElement {
		interested := slices.ContainsFunc(n.Listeners, func(l string) bool {
			return slices.Contains(mouseEvents, l)
		})
		_, tabindex := n.Attr("tabindex")
		focusable := n.HasListener("click") || tabindex
		if interested != n.interested || focusable != n.focusable {
			n.interested = interested
			n.focusable = focusable
			p.changed[n.ID] = struct{}{}
		}
		if n.pending && p.updateImage(n) {
			p.changed[n.ID] = struct{}{}
		}
	}

	if !n.pending {
		return
	}
	p.restyle[n.ID] = struct{}{}
	p.resolveStyle(n, parentFont)
}

// updateImage loads a changed img src. The previous texture is released only
// after the new source decodes; on failure the previous image is kept and the
// source is not retried until it changes.
func (p *statePass) updateImage(n *Node) bool {
	src, ok := n.Attr("src")
	if n.Tag != "img" || !ok {
		if !n.hasImage {
			return false
		}
		if n.image.Texture != NoTexture {
			p.d.textures.Free(n.image.Texture)
		}
		n.image = ImageState{}
		n.hasImage = false
		return true
	}
	if src == n.image.Path || src == n.image.failed || p.ctx.Images == nil {
		return false
	}

	img, err := p.ctx.Images.Load(src)
	if err != nil {
		slogger().Error("load image", "node", n.ID, "src", src, "err", err)
		n.image.failed = src
		return false
	}

	if n.image.Texture != NoTexture {
		p.d.textures.Free(n.image.Texture)
	}
	b := img.Bounds()
	n.image = ImageState{
		Path:    src,
		Texture: p.d.textures.Alloc(img),
		Size:    tw.ImageSize{float32(b.Dx()), float32(b.Dy())},
	}
	n.hasImage = true
	return true
}

// resolveStyle computes the style and font of n from its own inputs and the
// parent's font.
func (p *statePass) resolveStyle(n *Node, parentFont tw.Font) {
	var layout tw.LayoutStyle
	paint := tw.DefaultPaint()

	switch n.Kind {
	case KindPlaceholder:
		n.font = parentFont
		return

	case KindText:
		n.font = parentFont
		var w float32
		if p.ctx.Measurer != nil {
			w, _ = p.ctx.Measurer.Measure(n.Text, parentFont)
		}
		layout = tw.TextStyle(w, parentFont)
		// The glyphs may differ even when the box does not.
		p.changed[n.ID] = struct{}{}

	default:
		class, _ := n.Attr("class")
		st := tw.Resolve(class, n.hovered, parentFont, n.image.Size)
		n.font = st.Font
		layout, paint = st.Layout, st.Paint
		if n.ID == RootID {
			layout.Width = tw.Length(p.d.viewport.Width)
			layout.Height = tw.Length(p.d.viewport.Height)
		}
	}

	if !n.hasStyle || n.style.Layout != layout || n.style.Paint != paint {
		p.changed[n.ID] = struct{}{}
	}
	n.style.Layout = layout
	n.style.Paint = paint
}

// bottomUp creates or updates the layout node of n. Children are visited
// first, so their handles exist.
func (p *statePass) bottomUp(n *Node) error {
	if n.Kind == KindPlaceholder {
		return nil
	}
	tree := p.d.layout

	if !n.hasStyle {
		h := tree.NewLeaf(n.style.Layout)
		n.style.Handle = h
		n.hasStyle = true
		p.d.owners[h] = n.ID
	} else if _, ok := p.restyle[n.ID]; ok {
		if _, err := tree.SetStyle(n.style.Handle, n.style.Layout); err != nil {
			return err
		}
	}

	if !n.pending {
		return nil
	}
	handles := make([]LayoutHandle, 0, len(n.children))
	for _, c := range n.children {
		cn, ok := p.d.nodes[c]
		if !ok || cn.Kind == KindPlaceholder || !cn.hasStyle {
			continue
		}
		handles = append(handles, cn.style.Handle)
	}
	diff, err := tree.SetChildren(n.style.Handle, handles)
	if err != nil {
		return err
	}
	if diff {
		p.changed[n.ID] = struct{}{}
	}
	return nil
}

// computeLayout lays out the whole tree at the viewport size and reports every
// node whose box moved or resized.
func (p *statePass) computeLayout() error {
	root := p.d.Root()
	moved, err := p.d.layout.ComputeLayout(root.style.Handle, p.d.viewport)
	if err != nil {
		return err
	}
	for _, h := range moved {
		if id, ok := p.d.owners[h]; ok {
			p.changed[id] = struct{}{}
		}
	}
	return nil
}
