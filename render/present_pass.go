package render

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/agiangrant/sjik/internal/gpu"
)

// binding caches the view and bind group used to sample one texture.
type binding struct {
	tex, view, group gpu.Handle
}

// PresentPass composites the media attachment and then the UI attachment
// into the output image. Without a surface the output is an offscreen RGBA8
// texture that the window shim reads back.
type PresentPass struct {
	gpu *gpu.Manager

	layout  gpu.Handle
	sampler gpu.Handle
	opaque  gpu.Handle
	blended gpu.Handle

	output sampled
	media  binding
	ui     binding
}

// NewPresentPass creates both pipelines and a w×h output.
func NewPresentPass(m *gpu.Manager, w, h uint32) (*PresentPass, error) {
	p := &PresentPass{gpu: m}
	if err := p.init(w, h); err != nil {
		p.Close()
		return nil, fmt.Errorf("render: present pass: %w", err)
	}
	return p, nil
}

func (p *PresentPass) init(w, h uint32) error {
	m := p.gpu
	var err error
	if p.layout, err = sampledLayout(m, "present source"); err != nil {
		return err
	}
	if p.sampler, err = m.CreateSampler(gpu.SamplerDesc{Label: "present", Filter: gputypes.FilterModeNearest}); err != nil {
		return err
	}
	replace := gputypes.BlendStateReplace()
	p.opaque, err = m.CreatePipeline(gpu.PipelineDesc{
		Label:   "present media",
		WGSL:    presentShader,
		Layouts: []gpu.Handle{p.layout},
		Format:  AttachmentFormat,
		Blend:   &replace,
	})
	if err != nil {
		return err
	}
	over := gputypes.BlendStatePremultiplied()
	p.blended, err = m.CreatePipeline(gpu.PipelineDesc{
		Label:   "present ui",
		WGSL:    presentShader,
		Layouts: []gpu.Handle{p.layout},
		Format:  AttachmentFormat,
		Blend:   &over,
	})
	if err != nil {
		return err
	}
	return p.Resize(w, h)
}

// Output returns the output texture.
func (p *PresentPass) Output() gpu.Handle { return p.output.tex }

// Size returns the output size.
func (p *PresentPass) Size() (w, h uint32) { return p.output.w, p.output.h }

// Resize recreates the output at w×h.
func (p *PresentPass) Resize(w, h uint32) error {
	if w == 0 || h == 0 || (p.output.tex != gpu.InvalidHandle && p.output.w == w && p.output.h == h) {
		return nil
	}
	p.output.destroy(p.gpu)
	out, err := newAttachment(p.gpu, "present output", w, h, gpu.InvalidHandle, gpu.InvalidHandle)
	if err != nil {
		return err
	}
	p.output = out
	return nil
}

// bind returns a bind group sampling tex, rebuilding the cached one when the
// texture was replaced.
func (p *PresentPass) bind(b *binding, tex gpu.Handle) (gpu.Handle, error) {
	if b.tex == tex && b.group != gpu.InvalidHandle {
		return b.group, nil
	}
	p.release(b)
	view, err := p.gpu.CreateView(tex)
	if err != nil {
		return gpu.InvalidHandle, err
	}
	group, err := p.gpu.CreateBindGroup(gpu.BindGroupDesc{
		Label:   "present source",
		Layout:  p.layout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, View: view}, {Binding: 1, Sampler: p.sampler}},
	})
	if err != nil {
		p.gpu.Destroy(view)
		return gpu.InvalidHandle, err
	}
	*b = binding{tex: tex, view: view, group: group}
	return group, nil
}

func (p *PresentPass) release(b *binding) {
	if b.group != gpu.InvalidHandle {
		p.gpu.Destroy(b.group)
	}
	if b.view != gpu.InvalidHandle {
		p.gpu.Destroy(b.view)
	}
	*b = binding{}
}

// Draw records one render pass into the output: the media attachment drawn
// opaque, then the UI attachment blended over it with premultiplied alpha.
// Either source may be InvalidHandle to skip it.
func (p *PresentPass) Draw(ui, media gpu.Handle) error {
	var mediaGroup, uiGroup gpu.Handle
	var err error
	if media != gpu.InvalidHandle {
		if mediaGroup, err = p.bind(&p.media, media); err != nil {
			return err
		}
	}
	if ui != gpu.InvalidHandle {
		if uiGroup, err = p.bind(&p.ui, ui); err != nil {
			return err
		}
	}

	return p.gpu.Submit("present", func(enc *gpu.Encoder) error {
		for _, src := range []gpu.Handle{media, ui} {
			if src == gpu.InvalidHandle {
				continue
			}
			if err := enc.Transition(src, gputypes.TextureUsageTextureBinding); err != nil {
				return err
			}
		}
		if err := enc.Transition(p.output.tex, gputypes.TextureUsageRenderAttachment); err != nil {
			return err
		}
		pass, err := enc.BeginRenderPass("present", gpu.ColorTarget{
			View:  p.output.view,
			Load:  gputypes.LoadOpClear,
			Clear: gputypes.Color{A: 1},
		})
		if err != nil {
			return err
		}
		draws := []struct{ pipeline, group gpu.Handle }{
			{p.opaque, mediaGroup},
			{p.blended, uiGroup},
		}
		for _, d := range draws {
			if d.group == gpu.InvalidHandle {
				continue
			}
			if err := pass.SetPipeline(d.pipeline); err != nil {
				return err
			}
			if err := pass.SetBindGroup(0, d.group); err != nil {
				return err
			}
			pass.Draw(3)
		}
		pass.End()
		return enc.Transition(p.output.tex, gputypes.TextureUsageCopySrc)
	})
}

// Close releases every GPU resource owned by the pass.
func (p *PresentPass) Close() {
	p.release(&p.media)
	p.release(&p.ui)
	p.output.destroy(p.gpu)
	for _, h := range []gpu.Handle{p.blended, p.opaque, p.sampler, p.layout} {
		if h != gpu.InvalidHandle {
			p.gpu.Destroy(h)
		}
	}
}
