package render

import (
	"encoding/binary"
	"math"

	"github.com/agiangrant/sjik/retained"
	"github.com/agiangrant/sjik/text"
	"github.com/agiangrant/sjik/tw"
)

// Vertex is the UI vertex format: position in viewport pixels, texture
// coordinates and a premultiplied color.
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]uint8
}

// VertexSize is the size of an encoded Vertex in bytes.
const VertexSize = 20

// Batch is a run of indices drawn with one texture. A zero Texture selects
// the white texture.
type Batch struct {
	Texture    retained.TextureID
	FirstIndex uint32
	Count      uint32
}

// Mesh is tessellated UI geometry.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Batches  []Batch
}

// VertexBytes encodes the vertices in the layout the UI pipeline expects.
func (m *Mesh) VertexBytes() []byte {
	out := make([]byte, 0, len(m.Vertices)*VertexSize)
	for _, v := range m.Vertices {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.Pos[0]))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.Pos[1]))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.UV[0]))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.UV[1]))
		out = append(out, v.Color[:]...)
	}
	return out
}

// IndexBytes encodes the indices as little-endian uint32.
func (m *Mesh) IndexBytes() []byte {
	out := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

// GlyphAtlas provides glyph placement for text primitives. *text.Atlas
// implements it.
type GlyphAtlas interface {
	Glyph(f tw.Font, r rune) text.Glyph
	UV(g text.Glyph) [4]float32
}

// Glyphs pairs an atlas with the texture it is uploaded to.
type Glyphs struct {
	Atlas   GlyphAtlas
	Texture retained.TextureID
}

// Tessellate converts primitives into a mesh. Consecutive primitives that
// sample the same texture share a batch, so draw order is preserved.
func Tessellate(prims []Primitive, glyphs Glyphs) Mesh {
	t := tessellator{}
	for i := range prims {
		p := &prims[i]
		switch p.Kind {
		case PrimRect:
			t.rect(p)
		case PrimImage:
			t.image(p)
		case PrimText:
			if glyphs.Atlas != nil {
				t.text(p, glyphs)
			}
		}
	}
	return t.mesh
}

type tessellator struct {
	mesh Mesh
}

// begin makes sure the current batch samples tex.
func (t *tessellator) begin(tex retained.TextureID) {
	b := t.mesh.Batches
	if len(b) > 0 && b[len(b)-1].Texture == tex {
		return
	}
	t.mesh.Batches = append(b, Batch{Texture: tex, FirstIndex: uint32(len(t.mesh.Indices))})
}

func (t *tessellator) vertex(x, y, u, v float32, c [4]uint8) uint32 {
	t.mesh.Vertices = append(t.mesh.Vertices, Vertex{Pos: [2]float32{x, y}, UV: [2]float32{u, v}, Color: c})
	return uint32(len(t.mesh.Vertices) - 1)
}

func (t *tessellator) index(idx ...uint32) {
	t.mesh.Indices = append(t.mesh.Indices, idx...)
	t.mesh.Batches[len(t.mesh.Batches)-1].Count += uint32(len(idx))
}

func (t *tessellator) quad(r Rect, uv [4]float32, c [4]uint8) {
	a := t.vertex(r.X, r.Y, uv[0], uv[1], c)
	b := t.vertex(r.X+r.W, r.Y, uv[2], uv[1], c)
	d := t.vertex(r.X+r.W, r.Y+r.H, uv[2], uv[3], c)
	e := t.vertex(r.X, r.Y+r.H, uv[0], uv[3], c)
	t.index(a, b, d, a, d, e)
}

// premultiply converts a straight-alpha color to premultiplied RGBA8.
func premultiply(c tw.Color) [4]uint8 {
	a := uint16(c.A())
	return [4]uint8{
		uint8(uint16(c.R()) * a / 255),
		uint8(uint16(c.G()) * a / 255),
		uint8(uint16(c.B()) * a / 255),
		c.A(),
	}
}

func (t *tessellator) rect(p *Primitive) {
	r := p.Rect
	hasFill := p.Fill.A() > 0 && !r.Empty()
	hasBorder := p.Border.Width > 0 && p.Border.Color.A() > 0
	if !hasFill && !hasBorder {
		return
	}
	t.begin(retained.NoTexture)

	if hasFill {
		radius := clampRadius(p.Border.Radius, r)
		outline := roundedOutline(r, radius, arcSegments(radius.Max()))
		c := premultiply(p.Fill)
		center := t.vertex(r.X+r.W/2, r.Y+r.H/2, 0, 0, c)
		first := uint32(len(t.mesh.Vertices))
		for _, pt := range outline {
			t.vertex(pt[0], pt[1], 0, 0, c)
		}
		n := uint32(len(outline))
		for i := range n {
			t.index(center, first+i, first+(i+1)%n)
		}
	}

	if hasBorder {
		half := p.Border.Width / 2
		outer := Rect{X: r.X - half, Y: r.Y - half, W: r.W + p.Border.Width, H: r.H + p.Border.Width}
		inner := Rect{X: r.X + half, Y: r.Y + half, W: max(r.W-p.Border.Width, 0), H: max(r.H-p.Border.Width, 0)}
		outerR := clampRadius(grow(p.Border.Radius, half), outer)
		innerR := clampRadius(grow(p.Border.Radius, -half), inner)
		segs := arcSegments(outerR.Max())
		op := roundedOutline(outer, outerR, segs)
		ip := roundedOutline(inner, innerR, segs)

		c := premultiply(p.Border.Color)
		first := uint32(len(t.mesh.Vertices))
		for i := range op {
			t.vertex(op[i][0], op[i][1], 0, 0, c)
			t.vertex(ip[i][0], ip[i][1], 0, 0, c)
		}
		n := uint32(len(op))
		for i := range n {
			o0, i0 := first+2*i, first+2*i+1
			j := (i + 1) % n
			o1, i1 := first+2*j, first+2*j+1
			t.index(o0, o1, i1, o0, i1, i0)
		}
	}
}

func (t *tessellator) image(p *Primitive) {
	if p.Rect.Empty() {
		return
	}
	t.begin(p.Texture)
	t.quad(p.Rect, p.UV, premultiply(p.Tint))
}

func (t *tessellator) text(p *Primitive, glyphs Glyphs) {
	if p.Text == "" || p.Color.A() == 0 {
		return
	}
	var width float32
	for _, r := range p.Text {
		width += glyphs.Atlas.Glyph(p.Font, r).Advance
	}
	pen := p.Rect.X
	switch p.Align {
	case tw.AlignCenterText:
		pen += (p.Rect.W - width) / 2
	case tw.AlignRight:
		pen += p.Rect.W - width
	}

	t.begin(glyphs.Texture)
	c := premultiply(p.Color)
	for _, r := range p.Text {
		g := glyphs.Atlas.Glyph(p.Font, r)
		if !g.Rect.Empty() {
			q := Rect{
				X: float32(math.Round(float64(pen + g.Offset[0]))),
				Y: float32(math.Round(float64(p.Rect.Y + g.Offset[1]))),
				W: float32(g.Rect.Dx()),
				H: float32(g.Rect.Dy()),
			}
			t.quad(q, glyphs.Atlas.UV(g), c)
		}
		pen += g.Advance
	}
}

// ============================================================================
// Geometry
// ============================================================================

// grow offsets every rounded corner by by. Square corners stay square.
func grow(r tw.Radius, by float32) tw.Radius {
	g := func(v float32) float32 {
		if v <= 0 {
			return 0
		}
		return max(v+by, 0)
	}
	return tw.Radius{NW: g(r.NW), NE: g(r.NE), SE: g(r.SE), SW: g(r.SW)}
}

// clampRadius limits each corner to half the shorter side.
func clampRadius(r tw.Radius, rect Rect) tw.Radius {
	m := min(rect.W, rect.H) / 2
	if m < 0 {
		m = 0
	}
	return tw.Radius{NW: min(r.NW, m), NE: min(r.NE, m), SE: min(r.SE, m), SW: min(r.SW, m)}
}

// arcSegments picks the number of segments per corner for radius r.
func arcSegments(r float32) int {
	if r <= 0 {
		return 1
	}
	return min(max(int(r/2)+2, 3), 16)
}

// roundedOutline returns the outline of a rounded rectangle clockwise from
// the top-left corner. Every corner contributes segs+1 points, so outlines
// with the same segs can be stitched together.
func roundedOutline(r Rect, radius tw.Radius, segs int) [][2]float32 {
	type corner struct {
		cx, cy, rad float32
		start       float64
	}
	corners := [4]corner{
		{r.X + radius.NW, r.Y + radius.NW, radius.NW, math.Pi},
		{r.X + r.W - radius.NE, r.Y + radius.NE, radius.NE, 1.5 * math.Pi},
		{r.X + r.W - radius.SE, r.Y + r.H - radius.SE, radius.SE, 0},
		{r.X + radius.SW, r.Y + r.H - radius.SW, radius.SW, 0.5 * math.Pi},
	}
	pts := make([][2]float32, 0, 4*(segs+1))
	for _, c := range corners {
		for i := 0; i <= segs; i++ {
			a := c.start + float64(i)/float64(segs)*math.Pi/2
			pts = append(pts, [2]float32{
				c.cx + c.rad*float32(math.Cos(a)),
				c.cy + c.rad*float32(math.Sin(a)),
			})
		}
	}
	return pts
}
