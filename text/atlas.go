package text

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/agiangrant/sjik/tw"
)

// Glyph locates a rasterized glyph in the atlas.
type Glyph struct {
	// Rect is the glyph's pixel rectangle in the atlas image. Empty for
	// whitespace.
	Rect image.Rectangle

	// Offset of Rect's top-left corner from the pen position, where the pen
	// sits at the top of the line box.
	Offset [2]float32

	// Advance is how far the pen moves after this glyph.
	Advance float32
}

type glyphKey struct {
	font tw.Font
	r    rune
}

const atlasPadding = 1

// Atlas packs glyph coverage masks into a single RGBA image. Color channels
// are white and alpha carries coverage, so the atlas can be sampled by the
// same shader as images and tinted by vertex color.
//
// Existing glyph rectangles never move; when the atlas is full it grows
// downward. UVs must therefore be computed from Size after all glyphs of a
// frame have been requested.
type Atlas struct {
	faces *Faces

	mu     sync.Mutex
	img    *image.RGBA
	glyphs map[glyphKey]Glyph
	penX   int
	penY   int
	rowH   int
	dirty  bool
}

// NewAtlas returns an atlas of the given initial width and height.
func NewAtlas(faces *Faces, width, height int) *Atlas {
	return &Atlas{
		faces:  faces,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		glyphs: make(map[glyphKey]Glyph),
		dirty:  true,
	}
}

// Glyph returns the atlas entry for r in fnt, rasterizing it on first use.
func (a *Atlas) Glyph(fnt tw.Font, r rune) Glyph {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := glyphKey{fnt, r}
	if g, ok := a.glyphs[key]; ok {
		return g
	}

	var g Glyph
	if err := a.faces.Do(fnt, func(face font.Face) { g = a.rasterize(face, r) }); err != nil {
		return Glyph{}
	}
	a.glyphs[key] = g
	return g
}

// Prepare rasterizes every glyph of s so that later lookups do not grow the atlas.
func (a *Atlas) Prepare(s string, fnt tw.Font) {
	for _, r := range s {
		a.Glyph(fnt, r)
	}
}

func (a *Atlas) rasterize(face font.Face, r rune) Glyph {
	bounds, advance, ok := face.GlyphBounds(r)
	if !ok {
		r = '?'
		bounds, advance, _ = face.GlyphBounds(r)
	}
	ascent := face.Metrics().Ascent

	minX := bounds.Min.X.Floor()
	minY := bounds.Min.Y.Floor()
	maxX := bounds.Max.X.Ceil()
	maxY := bounds.Max.Y.Ceil()
	w, h := maxX-minX, maxY-minY

	g := Glyph{
		Offset:  [2]float32{float32(minX), fixedToFloat(ascent) + float32(minY)},
		Advance: fixedToFloat(advance),
	}
	if w <= 0 || h <= 0 {
		return g
	}

	mask := image.NewAlpha(image.Rect(minX, minY, maxX, maxY))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{},
	}
	d.DrawString(string(r))

	dst := a.allocate(w, h)
	draw.DrawMask(a.img, dst, image.NewUniform(color.White), image.Point{}, mask, mask.Bounds().Min, draw.Src)
	a.dirty = true

	g.Rect = dst
	return g
}

// allocate reserves a w×h region using shelf packing.
func (a *Atlas) allocate(w, h int) image.Rectangle {
	size := a.img.Bounds().Size()
	if a.penX+w+atlasPadding > size.X {
		a.penX = 0
		a.penY += a.rowH + atlasPadding
		a.rowH = 0
	}
	for a.penY+h+atlasPadding > a.img.Bounds().Dy() {
		a.grow()
	}

	r := image.Rect(a.penX, a.penY, a.penX+w, a.penY+h)
	a.penX += w + atlasPadding
	if h > a.rowH {
		a.rowH = h
	}
	return r
}

func (a *Atlas) grow() {
	old := a.img
	b := old.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()*2))
	draw.Draw(img, b, old, image.Point{}, draw.Src)
	a.img = img
}

// Size returns the current atlas dimensions.
func (a *Atlas) Size() (width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.img.Bounds().Size()
	return s.X, s.Y
}

// UV converts a glyph rectangle to normalized texture coordinates.
func (a *Atlas) UV(g Glyph) [4]float32 {
	w, h := a.Size()
	return [4]float32{
		float32(g.Rect.Min.X) / float32(w),
		float32(g.Rect.Min.Y) / float32(h),
		float32(g.Rect.Max.X) / float32(w),
		float32(g.Rect.Max.Y) / float32(h),
	}
}

// Image returns the atlas image. Callers must not modify it.
func (a *Atlas) Image() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.img
}

// TakeDirty reports whether glyphs were added since the last call.
func (a *Atlas) TakeDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dirty
	a.dirty = false
	return d
}
