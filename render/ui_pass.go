package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/retained"
)

// AttachmentFormat is the format of the UI and media attachments and of the
// offscreen output.
const AttachmentFormat = gputypes.TextureFormatRGBA8Unorm

const attachmentUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc

// sampled is a texture with its view and the bind group that samples it.
type sampled struct {
	tex, view, group gpu.Handle
	w, h             uint32
}

func (s *sampled) destroy(m *gpu.Manager) {
	for _, h := range []gpu.Handle{s.group, s.view, s.tex} {
		if h != gpu.InvalidHandle {
			m.Destroy(h)
		}
	}
	*s = sampled{}
}

// sampledLayout is the bind group layout of a texture at binding 0 and a
// sampler at binding 1.
func sampledLayout(m *gpu.Manager, label string) (gpu.Handle, error) {
	return m.CreateBindGroupLayout(label, []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	})
}

// newAttachment creates a render target with a view and a bind group that
// samples it through layout.
func newAttachment(m *gpu.Manager, label string, w, h uint32, layout, sampler gpu.Handle) (sampled, error) {
	var s sampled
	var err error
	s.w, s.h = w, h
	if s.tex, err = m.CreateTexture(gpu.TextureDesc{Label: label, Width: w, Height: h, Format: AttachmentFormat, Usage: attachmentUsage}); err != nil {
		return sampled{}, err
	}
	if s.view, err = m.CreateView(s.tex); err != nil {
		s.destroy(m)
		return sampled{}, err
	}
	if layout != gpu.InvalidHandle {
		s.group, err = m.CreateBindGroup(gpu.BindGroupDesc{
			Label:  label,
			Layout: layout,
			Entries: []gpu.BindGroupEntry{
				{Binding: 0, View: s.view},
				{Binding: 1, Sampler: sampler},
			},
		})
		if err != nil {
			s.destroy(m)
			return sampled{}, err
		}
	}
	return s, nil
}

// ============================================================================
// UIPass
// ============================================================================

var uiVertexLayout = []gputypes.VertexBufferLayout{{
	ArrayStride: VertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 16, ShaderLocation: 2},
	},
}}

// UIPass rasterizes UI meshes into the UI attachment. It owns the GPU copies
// of every texture the DOM's texture manager has issued.
type UIPass struct {
	gpu *gpu.Manager

	target sampled

	uniformLayout gpu.Handle
	textureLayout gpu.Handle
	pipeline      gpu.Handle
	sampler       gpu.Handle
	uniform       gpu.Handle
	uniformGroup  gpu.Handle

	vertices, indices   gpu.Handle
	vertexCap, indexCap uint64
	white               sampled
	textures            map[retained.TextureID]*sampled
}

// NewUIPass creates the pipeline and a w×h attachment.
func NewUIPass(m *gpu.Manager, w, h uint32) (*UIPass, error) {
	p := &UIPass{gpu: m, textures: make(map[retained.TextureID]*sampled)}
	if err := p.init(w, h); err != nil {
		p.Close()
		return nil, fmt.Errorf("render: ui pass: %w", err)
	}
	return p, nil
}

func (p *UIPass) init(w, h uint32) error {
	m := p.gpu
	var err error
	p.uniformLayout, err = m.CreateBindGroupLayout("ui viewport", []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}})
	if err != nil {
		return err
	}
	if p.textureLayout, err = sampledLayout(m, "ui texture"); err != nil {
		return err
	}
	if p.sampler, err = m.CreateSampler(gpu.SamplerDesc{Label: "ui", Filter: gputypes.FilterModeLinear}); err != nil {
		return err
	}
	p.uniform, err = m.CreateBuffer(gpu.BufferDesc{
		Label: "ui viewport",
		Size:  16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	p.uniformGroup, err = m.CreateBindGroup(gpu.BindGroupDesc{
		Label:   "ui viewport",
		Layout:  p.uniformLayout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: p.uniform}},
	})
	if err != nil {
		return err
	}
	blend := gputypes.BlendStatePremultiplied()
	p.pipeline, err = m.CreatePipeline(gpu.PipelineDesc{
		Label:   "ui",
		WGSL:    uiShader,
		Layouts: []gpu.Handle{p.uniformLayout, p.textureLayout},
		Buffers: uiVertexLayout,
		Format:  AttachmentFormat,
		Blend:   &blend,
	})
	if err != nil {
		return err
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	if p.white, err = p.upload(sampled{}, "ui white", white); err != nil {
		return err
	}
	return p.Resize(w, h)
}

// Target returns the UI attachment texture.
func (p *UIPass) Target() gpu.Handle { return p.target.tex }

// Size returns the attachment size.
func (p *UIPass) Size() (w, h uint32) { return p.target.w, p.target.h }

// Textures returns the number of DOM textures resident on the GPU.
func (p *UIPass) Textures() int { return len(p.textures) }

// Resize recreates the attachment at w×h.
func (p *UIPass) Resize(w, h uint32) error {
	if w == 0 || h == 0 {
		return nil
	}
	if p.target.tex != gpu.InvalidHandle && p.target.w == w && p.target.h == h {
		return nil
	}
	p.target.destroy(p.gpu)
	t, err := newAttachment(p.gpu, "ui attachment", w, h, gpu.InvalidHandle, gpu.InvalidHandle)
	if err != nil {
		return err
	}
	p.target = t

	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(w)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(h)))
	return p.gpu.Write(p.uniform, 0, buf[:])
}

// Sync applies a texture delta. Frees are applied first; a set that fails to
// upload is logged and skipped so the rest of the delta still lands, and the
// failures are returned joined.
func (p *UIPass) Sync(delta retained.Delta) error {
	for _, id := range delta.Free {
		if s, ok := p.textures[id]; ok {
			s.destroy(p.gpu)
			delete(p.textures, id)
		}
	}
	var errs []error
	for _, set := range delta.Set {
		old := p.textures[set.ID]
		var cur sampled
		if old != nil {
			cur = *old
		}
		s, err := p.upload(cur, fmt.Sprintf("texture %d", set.ID), set.Image)
		if err != nil {
			slogger().Error("ui texture upload failed", "texture", set.ID, "err", err)
			errs = append(errs, fmt.Errorf("render: sync texture %d: %w", set.ID, err))
			if old != nil && s != *old {
				// upload released the old texture before failing.
				delete(p.textures, set.ID)
			}
			continue
		}
		p.textures[set.ID] = &s
	}
	if !delta.Empty() {
		slogger().Debug("ui textures synced", "set", len(delta.Set), "free", len(delta.Free), "resident", len(p.textures))
	}
	return errors.Join(errs...)
}

// upload writes img into cur, recreating the texture when the size changed.
func (p *UIPass) upload(cur sampled, label string, img *image.RGBA) (sampled, error) {
	if img == nil {
		return cur, fmt.Errorf("nil image")
	}
	if img.Rect.Min != (image.Point{}) || img.Stride != 4*img.Rect.Dx() {
		packed := image.NewRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
		draw.Draw(packed, packed.Rect, img, img.Rect.Min, draw.Src)
		img = packed
	}
	w, h := uint32(img.Rect.Dx()), uint32(img.Rect.Dy())
	if w == 0 || h == 0 {
		return cur, fmt.Errorf("empty image")
	}

	m := p.gpu
	if cur.tex == gpu.InvalidHandle || cur.w != w || cur.h != h {
		cur.destroy(m)
		var err error
		cur.w, cur.h = w, h
		cur.tex, err = m.CreateTexture(gpu.TextureDesc{
			Label:  label,
			Width:  w,
			Height: h,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return sampled{}, err
		}
		if cur.view, err = m.CreateView(cur.tex); err != nil {
			cur.destroy(m)
			return sampled{}, err
		}
		cur.group, err = m.CreateBindGroup(gpu.BindGroupDesc{
			Label:   label,
			Layout:  p.textureLayout,
			Entries: []gpu.BindGroupEntry{{Binding: 0, View: cur.view}, {Binding: 1, Sampler: p.sampler}},
		})
		if err != nil {
			cur.destroy(m)
			return sampled{}, err
		}
	}
	if err := m.WriteTexture(cur.tex, img.Pix, uint32(img.Stride)); err != nil {
		return cur, err
	}
	return cur, nil
}

// ensure grows a buffer to hold at least size bytes.
func (p *UIPass) ensure(h *gpu.Handle, capacity *uint64, size uint64, label string, usage gputypes.BufferUsage) error {
	if *h != gpu.InvalidHandle && *capacity >= size {
		return nil
	}
	c := max(*capacity, 4096)
	for c < size {
		c *= 2
	}
	if *h != gpu.InvalidHandle {
		p.gpu.Destroy(*h)
	}
	nh, err := p.gpu.CreateBuffer(gpu.BufferDesc{Label: label, Size: c, Usage: usage | gputypes.BufferUsageCopyDst})
	if err != nil {
		*h, *capacity = gpu.InvalidHandle, 0
		return err
	}
	*h, *capacity = nh, c
	return nil
}

// Draw uploads mesh and records one render pass into the attachment,
// cleared to transparent. Each batch is one bind and one indexed draw.
func (p *UIPass) Draw(mesh Mesh) error {
	if len(mesh.Indices) > 0 {
		vb, ib := mesh.VertexBytes(), mesh.IndexBytes()
		if err := p.ensure(&p.vertices, &p.vertexCap, uint64(len(vb)), "ui vertices", gputypes.BufferUsageVertex); err != nil {
			return err
		}
		if err := p.ensure(&p.indices, &p.indexCap, uint64(len(ib)), "ui indices", gputypes.BufferUsageIndex); err != nil {
			return err
		}
		if err := p.gpu.Write(p.vertices, 0, vb); err != nil {
			return err
		}
		if err := p.gpu.Write(p.indices, 0, ib); err != nil {
			return err
		}
	}

	return p.gpu.Submit("ui", func(enc *gpu.Encoder) error {
		if err := enc.Transition(p.target.tex, gputypes.TextureUsageRenderAttachment); err != nil {
			return err
		}
		pass, err := enc.BeginRenderPass("ui", gpu.ColorTarget{
			View:  p.target.view,
			Load:  gputypes.LoadOpClear,
			Clear: gputypes.Color{},
		})
		if err != nil {
			return err
		}
		if len(mesh.Indices) > 0 {
			if err := p.record(pass, mesh); err != nil {
				return err
			}
		}
		pass.End()
		return enc.Transition(p.target.tex, gputypes.TextureUsageTextureBinding)
	})
}

func (p *UIPass) record(pass *gpu.RenderPass, mesh Mesh) error {
	if err := pass.SetPipeline(p.pipeline); err != nil {
		return err
	}
	if err := pass.SetBindGroup(0, p.uniformGroup); err != nil {
		return err
	}
	if err := pass.SetVertexBuffer(0, p.vertices); err != nil {
		return err
	}
	if err := pass.SetIndexBuffer(p.indices); err != nil {
		return err
	}
	pass.SetViewport(0, 0, float32(p.target.w), float32(p.target.h))
	for _, b := range mesh.Batches {
		if b.Count == 0 {
			continue
		}
		group := p.white.group
		if b.Texture != retained.NoTexture {
			s, ok := p.textures[b.Texture]
			if !ok {
				slogger().Warn("ui batch references missing texture", "texture", b.Texture)
				continue
			}
			group = s.group
		}
		if err := pass.SetBindGroup(1, group); err != nil {
			return err
		}
		pass.DrawIndexed(b.FirstIndex, b.Count)
	}
	return nil
}

// Close releases every GPU resource owned by the pass.
func (p *UIPass) Close() {
	for id, s := range p.textures {
		s.destroy(p.gpu)
		delete(p.textures, id)
	}
	p.white.destroy(p.gpu)
	p.target.destroy(p.gpu)
	for _, h := range []gpu.Handle{p.vertices, p.indices, p.pipeline, p.uniformGroup, p.uniform, p.sampler, p.textureLayout, p.uniformLayout} {
		if h != gpu.InvalidHandle {
			p.gpu.Destroy(h)
		}
	}
}
