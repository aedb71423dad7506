package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Encoder records commands inside a Submit scope. It is only valid until the
// scope's function returns.
type Encoder struct {
	m    *Manager
	raw  hal.CommandEncoder
	pass *RenderPass
}

// Barrier transitions a texture between explicit usages. Passing
// TextureUsageNone as from discards the previous contents.
func (e *Encoder) Barrier(tex Handle, from, to gputypes.TextureUsage) error {
	t, err := e.m.Texture(tex)
	if err != nil {
		return err
	}
	e.raw.TransitionTextures([]hal.TextureBarrier{{
		Texture: t,
		Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
		Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
	}})
	e.m.setState(tex, to)
	return nil
}

// Transition moves a texture from its last recorded usage to to. It records
// nothing if the texture is already in that usage.
func (e *Encoder) Transition(tex Handle, to gputypes.TextureUsage) error {
	from := e.m.state(tex)
	if from == to {
		return nil
	}
	return e.Barrier(tex, from, to)
}

// CopyBufferToTexture copies a region of rows starting at offset into the
// whole of a texture.
func (e *Encoder) CopyBufferToTexture(src Handle, offset uint64, bytesPerRow uint32, dst Handle, w, h uint32) error {
	buf, err := e.m.Buffer(src)
	if err != nil {
		return err
	}
	tex, err := e.m.Texture(dst)
	if err != nil {
		return err
	}
	e.raw.CopyBufferToTexture(buf, tex, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: offset, BytesPerRow: bytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	return nil
}

// CopyTextureToBuffer copies the top-left w by h region of a texture into a
// buffer with the given row pitch.
func (e *Encoder) CopyTextureToBuffer(src Handle, dst Handle, bytesPerRow, w, h uint32) error {
	tex, err := e.m.Texture(src)
	if err != nil {
		return err
	}
	buf, err := e.m.Buffer(dst)
	if err != nil {
		return err
	}
	e.raw.CopyTextureToBuffer(tex, buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	return nil
}

// ColorTarget is one color attachment of a render pass.
type ColorTarget struct {
	View  Handle
	Load  gputypes.LoadOp
	Clear gputypes.Color
}

// BeginRenderPass starts a render pass. A pass still open when the scope
// returns is ended automatically; only one pass may be open at a time.
func (e *Encoder) BeginRenderPass(label string, targets ...ColorTarget) (*RenderPass, error) {
	if e.pass != nil {
		return nil, errors.New("gpu: render pass already open")
	}
	atts := make([]hal.RenderPassColorAttachment, 0, len(targets))
	for _, t := range targets {
		v, err := e.m.View(t.View)
		if err != nil {
			return nil, fmt.Errorf("render pass %q: %w", label, err)
		}
		atts = append(atts, hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     t.Load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: t.Clear,
		})
	}
	e.pass = &RenderPass{
		enc: e,
		raw: e.raw.BeginRenderPass(&hal.RenderPassDescriptor{Label: label, ColorAttachments: atts}),
	}
	return e.pass, nil
}

func (e *Encoder) endPass() {
	if e.pass != nil {
		e.pass.End()
	}
}

// RenderPass records draw commands against handles.
type RenderPass struct {
	enc   *Encoder
	raw   hal.RenderPassEncoder
	ended bool
}

// End closes the pass. Calling End twice is harmless.
func (p *RenderPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.raw.End()
	p.enc.pass = nil
}

// SetPipeline binds a pipeline.
func (p *RenderPass) SetPipeline(h Handle) error {
	pl, err := p.enc.m.Pipeline(h)
	if err != nil {
		return err
	}
	p.raw.SetPipeline(pl)
	return nil
}

// SetBindGroup binds a bind group at index.
func (p *RenderPass) SetBindGroup(index uint32, h Handle) error {
	g, err := p.enc.m.BindGroup(h)
	if err != nil {
		return err
	}
	p.raw.SetBindGroup(index, g, nil)
	return nil
}

// SetVertexBuffer binds a vertex buffer at slot.
func (p *RenderPass) SetVertexBuffer(slot uint32, h Handle) error {
	b, err := p.enc.m.Buffer(h)
	if err != nil {
		return err
	}
	p.raw.SetVertexBuffer(slot, b, 0)
	return nil
}

// SetIndexBuffer binds a uint32 index buffer.
func (p *RenderPass) SetIndexBuffer(h Handle) error {
	b, err := p.enc.m.Buffer(h)
	if err != nil {
		return err
	}
	p.raw.SetIndexBuffer(b, gputypes.IndexFormatUint32, 0)
	return nil
}

// SetViewport sets the viewport in framebuffer pixels.
func (p *RenderPass) SetViewport(x, y, w, h float32) {
	p.raw.SetViewport(x, y, w, h, 0, 1)
}

// SetScissor restricts drawing to a rectangle.
func (p *RenderPass) SetScissor(x, y, w, h uint32) {
	p.raw.SetScissorRect(x, y, w, h)
}

// Draw draws non-indexed vertices.
func (p *RenderPass) Draw(vertices uint32) {
	p.raw.Draw(vertices, 1, 0, 0)
}

// DrawIndexed draws count indices starting at first.
func (p *RenderPass) DrawIndexed(first, count uint32) {
	p.raw.DrawIndexed(count, 1, first, 0, 0)
}
