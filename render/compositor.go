package render

import (
	"fmt"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/retained"
	"github.com/agiangrant/sjik/text"
)

// atlasSize is the initial glyph atlas size; it grows downward when full.
const atlasSize = 512

// FrameStats summarizes one UI frame.
type FrameStats struct {
	Primitives int
	Vertices   int
	Batches    int
	Textures   int
}

// Compositor renders a DOM into the UI attachment.
type Compositor struct {
	textures *retained.Textures
	atlas    *text.Atlas
	atlasTex retained.TextureID
	ui       *UIPass
}

// NewCompositor creates the UI pass. Glyphs are rasterized from faces and
// uploaded through the DOM's texture manager.
func NewCompositor(m *gpu.Manager, textures *retained.Textures, faces *text.Faces, w, h uint32) (*Compositor, error) {
	ui, err := NewUIPass(m, w, h)
	if err != nil {
		return nil, err
	}
	return &Compositor{
		textures: textures,
		atlas:    text.NewAtlas(faces, atlasSize, atlasSize),
		ui:       ui,
	}, nil
}

// UI returns the UI pass.
func (c *Compositor) UI() *UIPass { return c.ui }

// Resize resizes the UI attachment.
func (c *Compositor) Resize(w, h uint32) error { return c.ui.Resize(w, h) }

// Frame paints d, uploads new glyphs and texture changes, tessellates and
// draws into the UI attachment. It takes the DOM read lock while painting.
func (c *Compositor) Frame(d *retained.DOM) (FrameStats, error) {
	var prims []Primitive
	d.View(func() error {
		prims = Paint(d)
		return nil
	})

	for i := range prims {
		if prims[i].Kind == PrimText {
			c.atlas.Prepare(prims[i].Text, prims[i].Font)
		}
	}
	if c.atlas.TakeDirty() {
		img := c.atlas.Image()
		if c.atlasTex == retained.NoTexture || !c.textures.Set(c.atlasTex, img) {
			c.atlasTex = c.textures.Alloc(img)
		}
	}

	if err := c.ui.Sync(c.textures.TakeDelta()); err != nil {
		return FrameStats{}, err
	}
	mesh := Tessellate(prims, Glyphs{Atlas: c.atlas, Texture: c.atlasTex})
	if err := c.ui.Draw(mesh); err != nil {
		return FrameStats{}, fmt.Errorf("render: ui frame: %w", err)
	}

	stats := FrameStats{
		Primitives: len(prims),
		Vertices:   len(mesh.Vertices),
		Batches:    len(mesh.Batches),
		Textures:   c.ui.Textures(),
	}
	slogger().Debug("ui frame", "primitives", stats.Primitives, "vertices", stats.Vertices, "batches", stats.Batches)
	return stats, nil
}

// Close releases the UI pass and the atlas texture.
func (c *Compositor) Close() {
	if c.atlasTex != retained.NoTexture {
		c.textures.Free(c.atlasTex)
	}
	c.ui.Close()
}
