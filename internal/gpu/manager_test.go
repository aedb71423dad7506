package gpu

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
)

func openNoop(t *testing.T) *Manager {
	t.Helper()
	m, err := Open("noop")
	if err != nil {
		t.Fatalf("Open(noop): %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		want    gputypes.Backend
		wantErr bool
	}{
		{name: "vulkan", want: gputypes.BackendVulkan},
		{name: "Noop", want: gputypes.BackendEmpty},
		{name: " gles ", want: gputypes.BackendGL},
		{name: "opengl-es-9", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBackend(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBackend(%q) = %v, want error", tt.name, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseBackend(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
			}
		})
	}
}

func TestHandleEncoding(t *testing.T) {
	h := makeHandle(KindTexture, 42)
	if h.Kind() != KindTexture {
		t.Errorf("Kind() = %v, want texture", h.Kind())
	}
	if h.index() != 42 {
		t.Errorf("index() = %d, want 42", h.index())
	}
	if !h.Valid() {
		t.Error("handle should be valid")
	}
	if InvalidHandle.Valid() {
		t.Error("InvalidHandle should not be valid")
	}
	if makeHandle(Kind(200), 1).Valid() {
		t.Error("unknown kind should not be valid")
	}
}

func TestDestroy(t *testing.T) {
	m := openNoop(t)

	buf, err := m.CreateBuffer(BufferDesc{Label: "b", Size: 64, Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst})
	if err != nil {
		t.Fatal(err)
	}
	tex, err := m.CreateTexture(TextureDesc{Label: "t", Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, Usage: gputypes.TextureUsageTextureBinding})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Kind() != KindBuffer || tex.Kind() != KindTexture {
		t.Fatalf("kinds = %v, %v", buf.Kind(), tex.Kind())
	}
	if buf == tex {
		t.Fatal("handles must be distinct")
	}

	tests := []struct {
		name     string
		validate func(*testing.T)
	}{
		{
			name: "wrong kind is invalid",
			validate: func(t *testing.T) {
				if _, err := m.Texture(buf); !errors.Is(err, ErrInvalidHandle) {
					t.Errorf("Texture(buffer) err = %v, want ErrInvalidHandle", err)
				}
			},
		},
		{
			name: "never issued is invalid",
			validate: func(t *testing.T) {
				if _, err := m.Buffer(makeHandle(KindBuffer, 1<<40)); !errors.Is(err, ErrInvalidHandle) {
					t.Errorf("err = %v, want ErrInvalidHandle", err)
				}
			},
		},
		{
			name: "destroyed is released",
			validate: func(t *testing.T) {
				if err := m.Destroy(buf); err != nil {
					t.Fatal(err)
				}
				if _, err := m.Buffer(buf); !errors.Is(err, ErrReleased) {
					t.Errorf("Buffer after Destroy err = %v, want ErrReleased", err)
				}
				if err := m.Destroy(buf); err != nil {
					t.Errorf("second Destroy = %v, want nil", err)
				}
			},
		},
		{
			name: "new handles are not reused",
			validate: func(t *testing.T) {
				again, err := m.CreateBuffer(BufferDesc{Label: "b2", Size: 64, Usage: gputypes.BufferUsageVertex})
				if err != nil {
					t.Fatal(err)
				}
				if again == buf {
					t.Error("released handle was reissued")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.validate)
	}
}

func TestWrite(t *testing.T) {
	m := openNoop(t)

	tests := []struct {
		name  string
		usage gputypes.BufferUsage
	}{
		{name: "mapped", usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc},
		{name: "queued", usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := m.CreateBuffer(BufferDesc{Label: tt.name, Size: 16, Usage: tt.usage})
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Write(h, 4, []byte{1, 2, 3, 4}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := m.Write(h, 14, []byte{1, 2, 3, 4}); err == nil {
				t.Error("overflowing Write should fail")
			}

			buf, _ := m.Buffer(h)
			mapping, err := m.device.MapBuffer(buf, 0, 16)
			if err != nil {
				t.Fatal(err)
			}
			got := unsafe.Slice((*byte)(mapping.Ptr), 16)
			want := []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0}
			if !bytes.Equal(got, want) {
				t.Errorf("buffer = %v, want %v", got, want)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	m := openNoop(t)

	tex, err := m.CreateTexture(TextureDesc{
		Label: "target", Width: 8, Height: 8,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := m.CreateView(tex)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("render pass", func(t *testing.T) {
		err := m.Submit("clear", func(enc *Encoder) error {
			if err := enc.Transition(tex, gputypes.TextureUsageRenderAttachment); err != nil {
				return err
			}
			_, err := enc.BeginRenderPass("clear", ColorTarget{View: view, Load: gputypes.LoadOpClear})
			return err
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if got := m.state(tex); got != gputypes.TextureUsageRenderAttachment {
			t.Errorf("tracked state = %v, want RenderAttachment", got)
		}
	})

	t.Run("error discards", func(t *testing.T) {
		boom := errors.New("boom")
		err := m.Submit("fail", func(enc *Encoder) error {
			if _, err := enc.BeginRenderPass("fail", ColorTarget{View: view}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Submit err = %v, want boom", err)
		}
	})

	t.Run("released view", func(t *testing.T) {
		gone, _ := m.CreateView(tex)
		m.Destroy(gone)
		err := m.Submit("released", func(enc *Encoder) error {
			_, err := enc.BeginRenderPass("released", ColorTarget{View: gone})
			return err
		})
		if !errors.Is(err, ErrReleased) {
			t.Errorf("Submit err = %v, want ErrReleased", err)
		}
	})

	t.Run("readback", func(t *testing.T) {
		pixels, err := m.ReadTexture(tex, 8, 8)
		if err != nil {
			t.Fatalf("ReadTexture: %v", err)
		}
		if len(pixels) != 8*8*4 {
			t.Errorf("len = %d, want %d", len(pixels), 8*8*4)
		}
	})
}

func TestAlignedBytesPerRow(t *testing.T) {
	tests := []struct{ row, want uint32 }{
		{row: 4, want: 256},
		{row: 256, want: 256},
		{row: 1920 * 4, want: 7680},
		{row: 1921, want: 2048},
	}
	for _, tt := range tests {
		if got := AlignedBytesPerRow(tt.row); got != tt.want {
			t.Errorf("AlignedBytesPerRow(%d) = %d, want %d", tt.row, got, tt.want)
		}
	}
}

func TestCompileWGSL(t *testing.T) {
	const src = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i), 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`
	words, err := CompileWGSL(src)
	if err != nil {
		t.Fatalf("CompileWGSL: %v", err)
	}
	if len(words) == 0 || words[0] != 0x07230203 {
		t.Errorf("missing SPIR-V magic number")
	}
}
