// Package gpu owns the GPU device used by the renderer and hands out typed
// handles for the resources created on it.
//
// A Manager wraps one hal device and queue. Resources are referred to by
// Handle; the underlying hal objects stay private to the package except
// through the typed lookup methods. Recording and submission happen inside
// Submit scopes, which the Manager serializes.
package gpu

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// The noop backend is always available for headless use.
	_ "github.com/gogpu/wgpu/hal/noop"
)

// backendNames maps configuration names to hal backends. The concrete
// backend packages register themselves when imported; cmd/sjik imports
// hal/allbackends.
var backendNames = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"metal":  gputypes.BackendMetal,
	"dx12":   gputypes.BackendDX12,
	"gles":   gputypes.BackendGL,
	"gl":     gputypes.BackendGL,
	"noop":   gputypes.BackendEmpty,
	"empty":  gputypes.BackendEmpty,
}

// ParseBackend resolves a backend name.
func ParseBackend(name string) (gputypes.Backend, error) {
	b, ok := backendNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("gpu: unknown backend %q", name)
	}
	return b, nil
}

type entry struct {
	res any

	// buffers
	size  uint64
	usage gputypes.BufferUsage

	// textures
	tex   TextureDesc
	state gputypes.TextureUsage

	// pipelines own their module and layout
	module hal.ShaderModule
	layout hal.PipelineLayout
}

type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
}

// Manager owns a device, its queue and every resource created through it.
// Resource creation and lookup are safe for concurrent use. Submit scopes run
// one at a time.
type Manager struct {
	backend  gputypes.Backend
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  gputypes.AdapterInfo

	mu      sync.RWMutex
	next    uint64
	entries map[Handle]*entry

	submitMu sync.Mutex
	pending  []inflight
}

// Open creates an instance of the named backend and opens a device on its
// first discrete adapter, falling back to the first adapter listed.
func Open(backend string) (*Manager, error) {
	kind, err := ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	b, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("gpu: %s backend not available", backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: no adapters found for %s", backend)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	slogger().Info("gpu: device opened", "backend", backend, "adapter", selected.Info.Name,
		"type", selected.Info.DeviceType.String())

	return &Manager{
		backend:  kind,
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		adapter:  selected.Info,
		entries:  make(map[Handle]*entry),
	}, nil
}

// Backend returns the backend the device was opened on.
func (m *Manager) Backend() gputypes.Backend { return m.backend }

// Adapter describes the adapter the device was opened on.
func (m *Manager) Adapter() gputypes.AdapterInfo { return m.adapter }

// Close waits for the device to go idle, destroys every live resource and
// releases the device.
func (m *Manager) Close() error {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()

	if err := m.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle on close", "error", err)
	}
	for _, f := range m.pending {
		m.device.FreeCommandBuffer(f.cmd)
	}
	m.pending = nil

	m.mu.Lock()
	// Bind groups before layouts, views before textures.
	for _, k := range []Kind{KindBindGroup, KindPipeline, KindBindGroupLayout, KindView, KindSampler, KindTexture, KindBuffer} {
		for h, e := range m.entries {
			if h.Kind() == k {
				m.destroyEntry(h, e)
				delete(m.entries, h)
			}
		}
	}
	m.mu.Unlock()

	m.device.Destroy()
	m.instance.Destroy()
	return nil
}

// Live returns the number of resources that have not been destroyed.
func (m *Manager) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Manager) insert(k Kind, e *entry) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := makeHandle(k, m.next)
	m.entries[h] = e
	return h
}

// lookup returns the entry for h, distinguishing handles that were never
// issued from handles that were destroyed.
func (m *Manager) lookup(h Handle, k Kind) (*entry, error) {
	if !h.Valid() || h.Kind() != k {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrInvalidHandle, h, k)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[h]; ok {
		return e, nil
	}
	if h.index() <= m.next {
		return nil, fmt.Errorf("%w: %s", ErrReleased, h)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
}

// Destroy releases the resource behind h. Destroying an already released
// handle is a no-op.
func (m *Manager) Destroy(h Handle) error {
	if !h.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		if h.index() <= m.next {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	delete(m.entries, h)
	m.destroyEntry(h, e)
	return nil
}

func (m *Manager) destroyEntry(h Handle, e *entry) {
	switch h.Kind() {
	case KindBuffer:
		m.device.DestroyBuffer(e.res.(hal.Buffer))
	case KindTexture:
		m.device.DestroyTexture(e.res.(hal.Texture))
	case KindView:
		m.device.DestroyTextureView(e.res.(hal.TextureView))
	case KindSampler:
		m.device.DestroySampler(e.res.(hal.Sampler))
	case KindBindGroupLayout:
		m.device.DestroyBindGroupLayout(e.res.(hal.BindGroupLayout))
	case KindBindGroup:
		m.device.DestroyBindGroup(e.res.(hal.BindGroup))
	case KindPipeline:
		m.device.DestroyRenderPipeline(e.res.(hal.RenderPipeline))
		if e.layout != nil {
			m.device.DestroyPipelineLayout(e.layout)
		}
		if e.module != nil {
			m.device.DestroyShaderModule(e.module)
		}
	}
}

// ============================================================================
// Typed lookups
// ============================================================================

// Buffer returns the hal buffer behind h.
func (m *Manager) Buffer(h Handle) (hal.Buffer, error) {
	e, err := m.lookup(h, KindBuffer)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.Buffer), nil
}

// BufferSize returns the size the buffer was created with.
func (m *Manager) BufferSize(h Handle) (uint64, error) {
	e, err := m.lookup(h, KindBuffer)
	if err != nil {
		return 0, err
	}
	return e.size, nil
}

// Texture returns the hal texture behind h.
func (m *Manager) Texture(h Handle) (hal.Texture, error) {
	e, err := m.lookup(h, KindTexture)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.Texture), nil
}

// TextureDesc returns the descriptor the texture was created with.
func (m *Manager) TextureDesc(h Handle) (TextureDesc, error) {
	e, err := m.lookup(h, KindTexture)
	if err != nil {
		return TextureDesc{}, err
	}
	return e.tex, nil
}

// View returns the hal texture view behind h.
func (m *Manager) View(h Handle) (hal.TextureView, error) {
	e, err := m.lookup(h, KindView)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.TextureView), nil
}

// Sampler returns the hal sampler behind h.
func (m *Manager) Sampler(h Handle) (hal.Sampler, error) {
	e, err := m.lookup(h, KindSampler)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.Sampler), nil
}

// BindGroupLayout returns the hal bind group layout behind h.
func (m *Manager) BindGroupLayout(h Handle) (hal.BindGroupLayout, error) {
	e, err := m.lookup(h, KindBindGroupLayout)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.BindGroupLayout), nil
}

// BindGroup returns the hal bind group behind h.
func (m *Manager) BindGroup(h Handle) (hal.BindGroup, error) {
	e, err := m.lookup(h, KindBindGroup)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.BindGroup), nil
}

// Pipeline returns the hal render pipeline behind h.
func (m *Manager) Pipeline(h Handle) (hal.RenderPipeline, error) {
	e, err := m.lookup(h, KindPipeline)
	if err != nil {
		return nil, err
	}
	return e.res.(hal.RenderPipeline), nil
}

// ============================================================================
// Data transfer
// ============================================================================

// Write copies data into the buffer at offset. CPU-visible buffers
// (MapWrite) are mapped and written directly; other buffers go through the
// queue.
func (m *Manager) Write(h Handle, offset uint64, data []byte) error {
	e, err := m.lookup(h, KindBuffer)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > e.size {
		return fmt.Errorf("gpu: write of %d bytes at %d overflows %d byte buffer", len(data), offset, e.size)
	}
	buf := e.res.(hal.Buffer)

	if e.usage&gputypes.BufferUsageMapWrite == 0 {
		if err := m.queue.WriteBuffer(buf, offset, data); err != nil {
			return fmt.Errorf("gpu: write buffer: %w", err)
		}
		return nil
	}

	mapping, err := m.device.MapBuffer(buf, offset, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("gpu: map buffer: %w", err)
	}
	copy(unsafe.Slice((*byte)(mapping.Ptr), len(data)), data)
	if err := m.device.UnmapBuffer(buf); err != nil {
		return fmt.Errorf("gpu: unmap buffer: %w", err)
	}
	return nil
}

// ReadBuffer returns a copy of n bytes at offset of a CPU-visible buffer
// (MapRead or MapWrite).
func (m *Manager) ReadBuffer(h Handle, offset, n uint64) ([]byte, error) {
	e, err := m.lookup(h, KindBuffer)
	if err != nil {
		return nil, err
	}
	if e.usage&(gputypes.BufferUsageMapRead|gputypes.BufferUsageMapWrite) == 0 {
		return nil, fmt.Errorf("gpu: buffer %s is not mappable", h)
	}
	if offset+n > e.size {
		return nil, fmt.Errorf("gpu: read of %d bytes at %d overflows %d byte buffer", n, offset, e.size)
	}
	buf := e.res.(hal.Buffer)
	mapping, err := m.device.MapBuffer(buf, offset, n)
	if err != nil {
		return nil, fmt.Errorf("gpu: map buffer: %w", err)
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), n))
	if err := m.device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("gpu: unmap buffer: %w", err)
	}
	return out, nil
}

// WriteTexture uploads tightly packed pixel rows into the whole of mip
// level 0.
func (m *Manager) WriteTexture(h Handle, data []byte, bytesPerRow uint32) error {
	e, err := m.lookup(h, KindTexture)
	if err != nil {
		return err
	}
	err = m.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: e.res.(hal.Texture), Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: e.tex.Height},
		&hal.Extent3D{Width: e.tex.Width, Height: e.tex.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: write texture %s: %w", e.tex.Label, err)
	}
	m.mu.Lock()
	e.state = gputypes.TextureUsageCopyDst
	m.mu.Unlock()
	return nil
}

// ReadTexture copies an RGBA8 texture back to the CPU. The result is w*h*4
// tightly packed bytes. The texture must have been created with CopySrc.
func (m *Manager) ReadTexture(h Handle, w, hgt uint32) ([]byte, error) {
	if w == 0 || hgt == 0 {
		return nil, nil
	}
	row := w * 4
	stride := alignUp(row, copyPitchAlignment)
	size := uint64(stride) * uint64(hgt)

	staging, err := m.CreateBuffer(BufferDesc{
		Label: "readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer m.Destroy(staging)

	err = m.Submit("readback", func(enc *Encoder) error {
		if err := enc.Transition(h, gputypes.TextureUsageCopySrc); err != nil {
			return err
		}
		return enc.CopyTextureToBuffer(h, staging, stride, w, hgt)
	})
	if err != nil {
		return nil, err
	}
	if err := m.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("gpu: wait idle: %w", err)
	}

	buf, err := m.Buffer(staging)
	if err != nil {
		return nil, err
	}
	mapping, err := m.device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: map readback: %w", err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := make([]byte, int(row)*int(hgt))
	for y := range int(hgt) {
		copy(out[y*int(row):(y+1)*int(row)], src[y*int(stride):])
	}
	if err := m.device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("gpu: unmap readback: %w", err)
	}
	return out, nil
}

// copyPitchAlignment is the required bytes-per-row alignment of
// buffer/texture copies.
const copyPitchAlignment = 256

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// AlignedBytesPerRow rounds a row length up to the copy pitch alignment.
func AlignedBytesPerRow(row uint32) uint32 { return alignUp(row, copyPitchAlignment) }

// ============================================================================
// Submission
// ============================================================================

// Submit records commands with fn and submits them. Scopes are serialized:
// only one records at a time. If fn returns an error the recording is
// discarded and nothing is submitted.
func (m *Manager) Submit(label string, fn func(*Encoder) error) error {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()

	m.reclaim()

	raw, err := m.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("gpu: create encoder %q: %w", label, err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu: begin encoding %q: %w", label, err)
	}

	enc := &Encoder{m: m, raw: raw}
	if err := fn(enc); err != nil {
		enc.endPass()
		raw.DiscardEncoding()
		return fmt.Errorf("gpu: record %q: %w", label, err)
	}
	enc.endPass()

	cmd, err := raw.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding %q: %w", label, err)
	}
	index, err := m.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		m.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("gpu: submit %q: %w", label, err)
	}
	m.pending = append(m.pending, inflight{index: index, cmd: cmd})
	return nil
}

// reclaim frees command buffers whose submissions have completed.
func (m *Manager) reclaim() {
	if len(m.pending) == 0 {
		return
	}
	done := m.queue.PollCompleted()
	kept := m.pending[:0]
	for _, f := range m.pending {
		if f.index <= done {
			m.device.FreeCommandBuffer(f.cmd)
			continue
		}
		kept = append(kept, f)
	}
	m.pending = kept
}

func (m *Manager) setState(h Handle, u gputypes.TextureUsage) {
	m.mu.Lock()
	if e, ok := m.entries[h]; ok {
		e.state = u
	}
	m.mu.Unlock()
}

func (m *Manager) state(h Handle) gputypes.TextureUsage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[h]; ok {
		return e.state
	}
	return gputypes.TextureUsageNone
}
