// Package render turns the retained DOM and decoded video into GPU frames.
//
// The UI path is Paint (DOM → primitives), Tessellate (primitives → mesh)
// and UIPass (mesh → UI attachment). The media path uploads decoded YUV
// planes and converts them to RGB in MediaPass. PresentPass composites both
// attachments into the output image. Compositor ties the UI path together.
package render

import (
	"github.com/agiangrant/sjik/retained"
	"github.com/agiangrant/sjik/tw"
)

// FocusBorderWidth replaces the border width of the focused element.
const FocusBorderWidth float32 = 4

// PrimitiveKind identifies what a Primitive draws.
type PrimitiveKind uint8

const (
	PrimRect PrimitiveKind = iota
	PrimImage
	PrimText
)

// Rect is an axis-aligned rectangle in viewport pixels.
type Rect struct {
	X, Y, W, H float32
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Primitive is one drawing command in painter's order.
type Primitive struct {
	Kind PrimitiveKind
	Node retained.NodeID

	// Rect is the shape's geometry. For rects it is the border box inset by
	// half the border width, so the stroke is centered on its edge.
	Rect Rect

	// Clip is the visual bounds of the node.
	Clip Rect

	// PrimRect
	Fill   tw.Color
	Border tw.Border

	// PrimImage
	Texture retained.TextureID
	UV      [4]float32
	Tint    tw.Color

	// PrimText
	Text  string
	Font  tw.Font
	Color tw.Color
	Align tw.TextAlign
}

// Paint walks the DOM depth-first from the root and returns its primitives
// in painter's order. The caller must hold the DOM read lock.
func Paint(d *retained.DOM) []Primitive {
	root := d.Root()
	if root == nil {
		return nil
	}
	var prims []Primitive
	paintNode(d, root, nil, 0, 0, &prims)
	return prims
}

func paintNode(d *retained.DOM, n *retained.Node, parent *retained.Node, ox, oy float32, prims *[]Primitive) {
	style, ok := n.Style()
	if !ok {
		return
	}
	if style.Layout.Display == tw.DisplayNone {
		return
	}
	l, err := d.LayoutTree().Layout(style.Handle)
	if err != nil {
		return
	}
	x, y := ox+l.X, oy+l.Y
	bounds := Rect{X: x, Y: y, W: l.Width, H: l.Height}

	switch n.Kind {
	case retained.KindText:
		p := Primitive{
			Kind:  PrimText,
			Node:  n.ID,
			Rect:  bounds,
			Clip:  bounds,
			Text:  n.Text,
			Font:  n.Font(),
			Color: tw.White,
		}
		if parent != nil {
			p.Font = parent.Font()
			if ps, ok := parent.Style(); ok {
				p.Color = ps.Paint.TextColor
				p.Align = ps.Paint.TextAlign
			}
		}
		*prims = append(*prims, p)
		return

	case retained.KindElement:
		if img, ok := n.Image(); ok && img.Texture != retained.NoTexture {
			*prims = append(*prims, Primitive{
				Kind:    PrimImage,
				Node:    n.ID,
				Rect:    bounds,
				Clip:    bounds,
				Texture: img.Texture,
				UV:      [4]float32{0, 0, 1, 1},
				Tint:    tw.White,
			})
		} else {
			border := style.Paint.Border
			if d.Focused() == n.ID {
				border.Width = FocusBorderWidth
			}
			half := border.Width / 2
			*prims = append(*prims, Primitive{
				Kind:   PrimRect,
				Node:   n.ID,
				Rect:   Rect{X: x + half, Y: y + half, W: l.Width - border.Width, H: l.Height - border.Width},
				Clip:   bounds,
				Fill:   style.Paint.Background,
				Border: border,
			})
		}
	}

	for _, id := range n.Children() {
		c, err := d.Get(id)
		if err != nil {
			continue
		}
		paintNode(d, c, n, x, y, prims)
	}
}
