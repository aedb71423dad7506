package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/media"
)

// PlaneFormat is the YCbCr layout of decoded frames.
type PlaneFormat uint32

const (
	FormatNV12    PlaneFormat = 0 // 2-plane 8-bit
	FormatI420    PlaneFormat = 1 // 3-plane 8-bit
	FormatP010    PlaneFormat = 2 // 2-plane 10-bit
	FormatI420P10 PlaneFormat = 3 // 3-plane 10-bit
)

func (f PlaneFormat) String() string {
	switch f {
	case FormatNV12:
		return "nv12"
	case FormatI420:
		return "i420"
	case FormatP010:
		return "p010"
	case FormatI420P10:
		return "i420p10"
	}
	return fmt.Sprintf("PlaneFormat(%d)", uint32(f))
}

// Planes returns the number of planes of the format.
func (f PlaneFormat) Planes() int {
	if f == FormatNV12 || f == FormatP010 {
		return 2
	}
	return 3
}

// Wide reports whether samples are stored in 16 bits.
func (f PlaneFormat) Wide() bool { return f == FormatP010 || f == FormatI420P10 }

// SelectPlaneFormat picks the format from the plane count and the luma
// stride. A luma stride of at least two bytes per pixel means 16-bit
// storage. Plane counts other than 2 and 3 panic.
func SelectPlaneFormat(linesizes []int, width int) PlaneFormat {
	wide := len(linesizes) > 0 && linesizes[0] >= 2*width
	switch len(linesizes) {
	case 2:
		if wide {
			return FormatP010
		}
		return FormatNV12
	case 3:
		if wide {
			return FormatI420P10
		}
		return FormatI420
	}
	panic(fmt.Sprintf("render: unsupported plane count %d", len(linesizes)))
}

// PlaneCopy locates one plane in a frame buffer. Width and Height are the
// plane extent in texels.
type PlaneCopy struct {
	Offset      uint64
	BytesPerRow uint32
	Width       uint32
	Height      uint32
}

// PlaneLayout computes where each plane of a 4:2:0 frame lives. The luma
// plane is linesizes[0]×h bytes; chroma planes are subsampled rounding up, so
// an odd dimension keeps its last row and column. Offsets accumulate.
func PlaneLayout(f PlaneFormat, linesizes []int, w, h int) []PlaneCopy {
	if len(linesizes) != f.Planes() {
		panic(fmt.Sprintf("render: %v expects %d planes, got %d", f, f.Planes(), len(linesizes)))
	}
	planes := make([]PlaneCopy, len(linesizes))
	var off uint64
	for i, ls := range linesizes {
		pw, ph := w, h
		if i > 0 {
			pw, ph = (w+1)/2, (h+1)/2
		}
		planes[i] = PlaneCopy{Offset: off, BytesPerRow: uint32(ls), Width: uint32(pw), Height: uint32(ph)}
		off += uint64(ls) * uint64(ph)
	}
	return planes
}

// planeTextureFormat returns the texture format of plane i.
func planeTextureFormat(f PlaneFormat, i int) gputypes.TextureFormat {
	interleaved := f.Planes() == 2 && i == 1
	switch {
	case f.Wide() && interleaved:
		return gputypes.TextureFormatRG16Unorm
	case f.Wide():
		return gputypes.TextureFormatR16Unorm
	case interleaved:
		return gputypes.TextureFormatRG8Unorm
	}
	return gputypes.TextureFormatR8Unorm
}

// stagingLayout realigns a plane layout to the copy pitch the GPU requires.
func stagingLayout(planes []PlaneCopy) (out []PlaneCopy, size uint64) {
	out = make([]PlaneCopy, len(planes))
	for i, p := range planes {
		p.BytesPerRow = gpu.AlignedBytesPerRow(p.BytesPerRow)
		p.Offset = size
		out[i] = p
		size += uint64(p.BytesPerRow) * uint64(p.Height)
	}
	return out, size
}

// LetterboxQuad returns the quad, in normalized device coordinates, that
// fits a video of vw×vh into a screen of sw×sh preserving aspect ratio. The
// result is {x0, y0, x1, y1}.
func LetterboxQuad(vw, vh, sw, sh float32) [4]float32 {
	if vw <= 0 || vh <= 0 || sw <= 0 || sh <= 0 {
		return [4]float32{-1, -1, 1, 1}
	}
	video, screen := vw/vh, sw/sh
	switch {
	case screen > video:
		// pillarbox
		x := video / screen
		return [4]float32{-x, -1, x, 1}
	case screen < video:
		// letterbox
		y := screen / video
		return [4]float32{-1, -y, 1, y}
	}
	return [4]float32{-1, -1, 1, 1}
}

const mediaVertexSize = 16

var mediaVertexLayout = []gputypes.VertexBufferLayout{{
	ArrayStride: mediaVertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
	},
}}

// quadVertices returns six vertices (two triangles) covering q.
func quadVertices(q [4]float32) []byte {
	x0, y0, x1, y1 := q[0], q[1], q[2], q[3]
	// NDC y points up; texture v points down.
	verts := [6][4]float32{
		{x0, y1, 0, 0}, {x1, y1, 1, 0}, {x1, y0, 1, 1},
		{x0, y1, 0, 0}, {x1, y0, 1, 1}, {x0, y0, 0, 1},
	}
	out := make([]byte, 0, len(verts)*mediaVertexSize)
	for _, v := range verts {
		for _, f := range v {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out
}

// ============================================================================
// MediaPass
// ============================================================================

// MediaPass uploads decoded frames and converts them to RGB in the media
// attachment.
type MediaPass struct {
	gpu *gpu.Manager

	screenW, screenH uint32
	target           sampled

	ready    bool
	format   PlaneFormat
	videoW   int
	videoH   int
	planes   []PlaneCopy
	staged   []PlaneCopy
	staging  gpu.Handle
	size     uint64
	textures []gpu.Handle
	views    []gpu.Handle
	sampler  gpu.Handle
	layout   gpu.Handle
	group    gpu.Handle
	pipeline gpu.Handle
	quad     gpu.Handle
	scratch  []byte
}

// NewMediaPass creates a black w×h media attachment. Plane resources are
// created by SetupBuffers once the first frame is known.
func NewMediaPass(m *gpu.Manager, w, h uint32) (*MediaPass, error) {
	p := &MediaPass{gpu: m}
	if err := p.Resize(w, h); err != nil {
		return nil, fmt.Errorf("render: media pass: %w", err)
	}
	return p, nil
}

// Target returns the media attachment texture.
func (p *MediaPass) Target() gpu.Handle { return p.target.tex }

// Ready reports whether SetupBuffers has run.
func (p *MediaPass) Ready() bool { return p.ready }

// Format returns the plane format selected by SetupBuffers.
func (p *MediaPass) Format() PlaneFormat { return p.format }

// Resize recreates the attachment, cleared to black, and refits the quad.
func (p *MediaPass) Resize(w, h uint32) error {
	if w == 0 || h == 0 || (p.target.tex != gpu.InvalidHandle && p.screenW == w && p.screenH == h) {
		return nil
	}
	p.target.destroy(p.gpu)
	t, err := newAttachment(p.gpu, "media attachment", w, h, gpu.InvalidHandle, gpu.InvalidHandle)
	if err != nil {
		return err
	}
	p.target = t
	p.screenW, p.screenH = w, h
	if err := p.clear(); err != nil {
		return err
	}
	if p.ready {
		return p.writeQuad()
	}
	return nil
}

func (p *MediaPass) clear() error {
	return p.gpu.Submit("media clear", func(enc *gpu.Encoder) error {
		if err := enc.Transition(p.target.tex, gputypes.TextureUsageRenderAttachment); err != nil {
			return err
		}
		pass, err := enc.BeginRenderPass("media clear", gpu.ColorTarget{
			View:  p.target.view,
			Load:  gputypes.LoadOpClear,
			Clear: gputypes.Color{A: 1},
		})
		if err != nil {
			return err
		}
		pass.End()
		return enc.Transition(p.target.tex, gputypes.TextureUsageTextureBinding)
	})
}

func (p *MediaPass) writeQuad() error {
	q := LetterboxQuad(float32(p.videoW), float32(p.videoH), float32(p.screenW), float32(p.screenH))
	return p.gpu.Write(p.quad, 0, quadVertices(q))
}

// SetupBuffers allocates the plane textures, staging buffer, quad and
// pipeline for video of videoW×videoH, selecting the plane format from
// first. Later calls do nothing.
func (p *MediaPass) SetupBuffers(videoW, videoH int, first *media.Frame) error {
	if p.ready {
		return nil
	}
	p.format = SelectPlaneFormat(first.Linesizes, videoW)
	p.videoW, p.videoH = videoW, videoH
	p.planes = PlaneLayout(p.format, first.Linesizes, videoW, videoH)
	p.staged, p.size = stagingLayout(p.planes)

	if err := p.setup(); err != nil {
		p.release()
		return fmt.Errorf("render: media setup: %w", err)
	}
	p.ready = true
	slogger().Info("media pass ready", "format", p.format.String(), "width", videoW, "height", videoH)
	return p.writeQuad()
}

func (p *MediaPass) setup() error {
	m := p.gpu
	var err error

	p.staging, err = m.CreateBuffer(gpu.BufferDesc{
		Label: "media staging",
		Size:  p.size,
		Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return err
	}
	p.quad, err = m.CreateBuffer(gpu.BufferDesc{
		Label: "media quad",
		Size:  6 * mediaVertexSize,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	if p.sampler, err = m.CreateSampler(gpu.SamplerDesc{Label: "media", Filter: gputypes.FilterModeLinear}); err != nil {
		return err
	}

	layoutEntries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageFragment,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	}}
	groupEntries := []gpu.BindGroupEntry{{Binding: 0, Sampler: p.sampler}}

	for i, pl := range p.planes {
		tex, err := m.CreateTexture(gpu.TextureDesc{
			Label:  fmt.Sprintf("media plane %d", i),
			Width:  pl.Width,
			Height: pl.Height,
			Format: planeTextureFormat(p.format, i),
			Usage:  gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
		})
		if err != nil {
			return err
		}
		p.textures = append(p.textures, tex)
		view, err := m.CreateView(tex)
		if err != nil {
			return err
		}
		p.views = append(p.views, view)

		binding := uint32(i + 1)
		layoutEntries = append(layoutEntries, gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
		groupEntries = append(groupEntries, gpu.BindGroupEntry{Binding: binding, View: view})
	}

	if p.layout, err = m.CreateBindGroupLayout("media planes", layoutEntries); err != nil {
		return err
	}
	p.group, err = m.CreateBindGroup(gpu.BindGroupDesc{Label: "media planes", Layout: p.layout, Entries: groupEntries})
	if err != nil {
		return err
	}
	blend := gputypes.BlendStateReplace()
	p.pipeline, err = m.CreatePipeline(gpu.PipelineDesc{
		Label:   "media " + p.format.String(),
		WGSL:    mediaShader(p.format),
		Layouts: []gpu.Handle{p.layout},
		Buffers: mediaVertexLayout,
		Format:  AttachmentFormat,
		Blend:   &blend,
	})
	return err
}

// stage copies the frame's planes into the staging buffer, repacking rows
// whose stride differs from the aligned pitch.
func (p *MediaPass) stage(f *media.Frame) error {
	if uint64(cap(p.scratch)) < p.size {
		p.scratch = make([]byte, p.size)
	}
	buf := p.scratch[:p.size]
	for i, src := range p.planes {
		dst := p.staged[i]
		rows := int(src.Height)
		for y := range rows {
			from := int(src.Offset) + y*int(src.BytesPerRow)
			if from >= len(f.Data) {
				break
			}
			end := min(from+int(src.BytesPerRow), len(f.Data))
			copy(buf[int(dst.Offset)+y*int(dst.BytesPerRow):], f.Data[from:end])
		}
	}
	return p.gpu.Write(p.staging, 0, buf)
}

// Draw uploads f and renders it into the media attachment. A frame whose
// plane count differs from the first frame's panics.
func (p *MediaPass) Draw(f *media.Frame) error {
	if !p.ready {
		return fmt.Errorf("render: media pass drawn before setup")
	}
	if f.Planes() != p.format.Planes() {
		panic(fmt.Sprintf("render: frame has %d planes, media pass was built for %v", f.Planes(), p.format))
	}
	if err := p.stage(f); err != nil {
		return err
	}

	return p.gpu.Submit("media", func(enc *gpu.Encoder) error {
		for _, tex := range p.textures {
			if err := enc.Barrier(tex, gputypes.TextureUsageNone, gputypes.TextureUsageCopyDst); err != nil {
				return err
			}
		}
		for i, tex := range p.textures {
			pl := p.staged[i]
			if err := enc.CopyBufferToTexture(p.staging, pl.Offset, pl.BytesPerRow, tex, pl.Width, pl.Height); err != nil {
				return err
			}
		}
		for _, tex := range p.textures {
			if err := enc.Barrier(tex, gputypes.TextureUsageCopyDst, gputypes.TextureUsageTextureBinding); err != nil {
				return err
			}
		}

		if err := enc.Transition(p.target.tex, gputypes.TextureUsageRenderAttachment); err != nil {
			return err
		}
		pass, err := enc.BeginRenderPass("media", gpu.ColorTarget{
			View:  p.target.view,
			Load:  gputypes.LoadOpClear,
			Clear: gputypes.Color{A: 1},
		})
		if err != nil {
			return err
		}
		if err := pass.SetPipeline(p.pipeline); err != nil {
			return err
		}
		if err := pass.SetBindGroup(0, p.group); err != nil {
			return err
		}
		if err := pass.SetVertexBuffer(0, p.quad); err != nil {
			return err
		}
		pass.Draw(6)
		pass.End()
		return enc.Transition(p.target.tex, gputypes.TextureUsageTextureBinding)
	})
}

func (p *MediaPass) release() {
	hs := []gpu.Handle{p.pipeline, p.group, p.layout, p.sampler, p.quad, p.staging}
	hs = append(hs, p.views...)
	hs = append(hs, p.textures...)
	for _, h := range hs {
		if h != gpu.InvalidHandle {
			p.gpu.Destroy(h)
		}
	}
	p.pipeline, p.group, p.layout, p.sampler, p.quad, p.staging = 0, 0, 0, 0, 0, 0
	p.views, p.textures = nil, nil
	p.ready = false
}

// Close releases every GPU resource owned by the pass.
func (p *MediaPass) Close() {
	p.release()
	p.target.destroy(p.gpu)
}
