package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDesc describes a single-mip 2D texture.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// SamplerDesc describes a clamp-to-edge sampler.
type SamplerDesc struct {
	Label  string
	Filter gputypes.FilterMode
}

// BindGroupEntry binds one resource. Exactly one of Buffer, Sampler and View
// is set.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Handle
	Offset  uint64
	Size    uint64 // 0 binds the rest of the buffer
	Sampler Handle
	View    Handle
}

// BindGroupDesc describes a bind group.
type BindGroupDesc struct {
	Label   string
	Layout  Handle
	Entries []BindGroupEntry
}

// PipelineDesc describes a render pipeline compiled from WGSL. The shader
// must provide vs_main and fs_main unless other entry points are named.
type PipelineDesc struct {
	Label         string
	WGSL          string
	VertexEntry   string
	FragmentEntry string
	Layouts       []Handle
	Buffers       []gputypes.VertexBufferLayout
	Format        gputypes.TextureFormat
	Blend         *gputypes.BlendState
}

// CreateBuffer creates a buffer.
func (m *Manager) CreateBuffer(d BufferDesc) (Handle, error) {
	if d.Size == 0 {
		return InvalidHandle, fmt.Errorf("gpu: buffer %q: zero size", d.Label)
	}
	buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.Label,
		Size:  d.Size,
		Usage: d.Usage,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create buffer %q: %w", d.Label, err)
	}
	return m.insert(KindBuffer, &entry{res: buf, size: d.Size, usage: d.Usage}), nil
}

// CreateTexture creates a 2D texture with one mip level.
func (m *Manager) CreateTexture(d TextureDesc) (Handle, error) {
	if d.Width == 0 || d.Height == 0 {
		return InvalidHandle, fmt.Errorf("gpu: texture %q: zero extent %dx%d", d.Label, d.Width, d.Height)
	}
	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         d.Label,
		Size:          hal.Extent3D{Width: d.Width, Height: d.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.Format,
		Usage:         d.Usage,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create texture %q: %w", d.Label, err)
	}
	return m.insert(KindTexture, &entry{res: tex, tex: d, state: gputypes.TextureUsageNone}), nil
}

// CreateView creates a view of the whole texture in its own format.
func (m *Manager) CreateView(tex Handle) (Handle, error) {
	e, err := m.lookup(tex, KindTexture)
	if err != nil {
		return InvalidHandle, err
	}
	view, err := m.device.CreateTextureView(e.res.(hal.Texture), &hal.TextureViewDescriptor{
		Label:           e.tex.Label + " view",
		Format:          e.tex.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create view of %q: %w", e.tex.Label, err)
	}
	return m.insert(KindView, &entry{res: view}), nil
}

// CreateSampler creates a sampler.
func (m *Manager) CreateSampler(d SamplerDesc) (Handle, error) {
	s, err := m.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        d.Label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    d.Filter,
		MinFilter:    d.Filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create sampler %q: %w", d.Label, err)
	}
	return m.insert(KindSampler, &entry{res: s}), nil
}

// CreateBindGroupLayout creates a bind group layout.
func (m *Manager) CreateBindGroupLayout(label string, entries []gputypes.BindGroupLayoutEntry) (Handle, error) {
	l, err := m.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create bind group layout %q: %w", label, err)
	}
	return m.insert(KindBindGroupLayout, &entry{res: l}), nil
}

// CreateBindGroup creates a bind group from handles.
func (m *Manager) CreateBindGroup(d BindGroupDesc) (Handle, error) {
	layout, err := m.BindGroupLayout(d.Layout)
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: bind group %q: %w", d.Label, err)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(d.Entries))
	for _, be := range d.Entries {
		res, err := m.bindingResource(be)
		if err != nil {
			return InvalidHandle, fmt.Errorf("gpu: bind group %q binding %d: %w", d.Label, be.Binding, err)
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: be.Binding, Resource: res})
	}
	g, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   d.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create bind group %q: %w", d.Label, err)
	}
	return m.insert(KindBindGroup, &entry{res: g}), nil
}

func (m *Manager) bindingResource(be BindGroupEntry) (gputypes.BindingResource, error) {
	switch {
	case be.Buffer != InvalidHandle:
		e, err := m.lookup(be.Buffer, KindBuffer)
		if err != nil {
			return nil, err
		}
		size := be.Size
		if size == 0 {
			size = e.size - be.Offset
		}
		return gputypes.BufferBinding{
			Buffer: e.res.(hal.Buffer).NativeHandle(),
			Offset: be.Offset,
			Size:   size,
		}, nil
	case be.Sampler != InvalidHandle:
		s, err := m.Sampler(be.Sampler)
		if err != nil {
			return nil, err
		}
		return gputypes.SamplerBinding{Sampler: s.NativeHandle()}, nil
	case be.View != InvalidHandle:
		v, err := m.View(be.View)
		if err != nil {
			return nil, err
		}
		return gputypes.TextureViewBinding{TextureView: v.NativeHandle()}, nil
	}
	return nil, fmt.Errorf("%w: empty binding", ErrInvalidHandle)
}

// CreatePipeline compiles the WGSL source and creates a triangle-list
// render pipeline with one color target.
func (m *Manager) CreatePipeline(d PipelineDesc) (Handle, error) {
	spirv, err := CompileWGSL(d.WGSL)
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: pipeline %q: %w", d.Label, err)
	}
	module, err := m.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.Label + " shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("gpu: create shader module %q: %w", d.Label, err)
	}

	layouts := make([]hal.BindGroupLayout, 0, len(d.Layouts))
	for _, h := range d.Layouts {
		l, err := m.BindGroupLayout(h)
		if err != nil {
			m.device.DestroyShaderModule(module)
			return InvalidHandle, fmt.Errorf("gpu: pipeline %q: %w", d.Label, err)
		}
		layouts = append(layouts, l)
	}
	layout, err := m.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.Label + " layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		m.device.DestroyShaderModule(module)
		return InvalidHandle, fmt.Errorf("gpu: create pipeline layout %q: %w", d.Label, err)
	}

	vs, fs := d.VertexEntry, d.FragmentEntry
	if vs == "" {
		vs = "vs_main"
	}
	if fs == "" {
		fs = "fs_main"
	}
	pipeline, err := m.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  d.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: vs,
			Buffers:    d.Buffers,
		},
		Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: fs,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.Format,
				Blend:     d.Blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		m.device.DestroyPipelineLayout(layout)
		m.device.DestroyShaderModule(module)
		return InvalidHandle, fmt.Errorf("gpu: create pipeline %q: %w", d.Label, err)
	}
	return m.insert(KindPipeline, &entry{res: pipeline, module: module, layout: layout}), nil
}
