package sjik

import (
	"context"
	"testing"
	"time"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/media"
	"github.com/agiangrant/sjik/retained"
	"github.com/agiangrant/sjik/vdom"
)

func newTestApp(t *testing.T, root vdom.Component) (*App, *gpu.Manager) {
	t.Helper()
	m, err := gpu.Open("noop")
	if err != nil {
		t.Fatalf("open noop backend: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	cfg := DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Assets.Dir = t.TempDir()
	a, err := NewApp(cfg, m, root)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, m
}

// nv12 is a 4×2 NV12 frame with 8-byte strides.
func nv12(pts int64) *media.Frame {
	return &media.Frame{Data: make([]byte, 24), Linesizes: []int{8, 8}, Width: 4, Height: 2, PTS: pts}
}

func TestAppRender(t *testing.T) {
	root := func() *vdom.VNode {
		return vdom.Div("bg-gray-900 w-full h-full", vdom.Text("sjik"))
	}

	tests := []struct {
		name     string
		validate func(*testing.T, *App, *gpu.Manager)
	}{
		{
			name: "first frame requests a redraw",
			validate: func(t *testing.T, a *App, _ *gpu.Manager) {
				select {
				case <-a.Redraw():
				default:
					t.Fatal("no redraw after the first frame")
				}
				if d := a.ComputeDirtyRegions(); d.Empty() {
					t.Error("dirty set empty after mounting")
				}
				if d := a.ComputeDirtyRegions(); !d.Empty() {
					t.Errorf("dirty set not drained: %+v", d)
				}
			},
		},
		{
			name: "output matches the window",
			validate: func(t *testing.T, a *App, _ *gpu.Manager) {
				if err := a.RenderFrame(); err != nil {
					t.Fatalf("RenderFrame: %v", err)
				}
				px, w, h, err := a.Output()
				if err != nil {
					t.Fatal(err)
				}
				if w != 64 || h != 48 || len(px) != 64*48*4 {
					t.Errorf("output %dx%d with %d bytes", w, h, len(px))
				}
			},
		},
		{
			name: "resize follows the viewport",
			validate: func(t *testing.T, a *App, _ *gpu.Manager) {
				if !a.DispatchRawEvent(retained.Resize{Width: 120, Height: 80}) {
					t.Error("resize did not request a repaint")
				}
				if err := a.RenderFrame(); err != nil {
					t.Fatal(err)
				}
				_, w, h, err := a.Output()
				if err != nil {
					t.Fatal(err)
				}
				if w != 120 || h != 80 {
					t.Errorf("output = %dx%d, want 120x80", w, h)
				}
				a.dom.View(func() error {
					if v := a.dom.Viewport(); v.Width != 120 || v.Height != 80 {
						t.Errorf("viewport = %+v", v)
					}
					return nil
				})
			},
		},
		{
			name: "zero size is ignored",
			validate: func(t *testing.T, a *App, _ *gpu.Manager) {
				if a.DispatchRawEvent(retained.Resize{}) {
					t.Error("minimized window requested a repaint")
				}
				if err := a.ApplySize(0, 10); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "video frames reach the media pass",
			validate: func(t *testing.T, a *App, _ *gpu.Manager) {
				<-a.Redraw()
				a.PresentVideo(nv12(1))
				select {
				case <-a.Redraw():
				default:
					t.Error("PresentVideo did not request a redraw")
				}
				if err := a.RenderFrame(); err != nil {
					t.Fatalf("RenderFrame: %v", err)
				}
				if !a.media.Ready() || a.drawn == nil || a.drawn.PTS != 1 {
					t.Fatalf("media ready=%v drawn=%v", a.media.Ready(), a.drawn)
				}
				// The same frame is not uploaded twice.
				first := a.drawn
				if err := a.RenderFrame(); err != nil {
					t.Fatal(err)
				}
				if a.drawn != first {
					t.Error("frame redrawn")
				}
				a.PresentVideo(nv12(2))
				if err := a.RenderFrame(); err != nil {
					t.Fatal(err)
				}
				if a.drawn.PTS != 2 {
					t.Errorf("drawn pts = %d, want 2", a.drawn.PTS)
				}
			},
		},
		{
			name: "close releases gpu resources",
			validate: func(t *testing.T, a *App, m *gpu.Manager) {
				a.PresentVideo(nv12(1))
				if err := a.RenderFrame(); err != nil {
					t.Fatal(err)
				}
				a.Close()
				if m.Live() != 0 {
					t.Errorf("live resources = %d", m.Live())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, m := newTestApp(t, root)
			if err := a.Runtime().Frame(); err != nil {
				t.Fatalf("Frame: %v", err)
			}
			tt.validate(t, a, m)
		})
	}
}

func TestAppDispatchRawEvent(t *testing.T) {
	clicks := make(chan retained.Event, 4)
	root := func() *vdom.VNode {
		return vdom.El("button",
			vdom.Class("w-8 h-8 bg-red-500 hover:bg-blue-500"),
			vdom.On(retained.EventClick, func(ev retained.Event) { clicks <- ev }),
		)
	}
	a, _ := newTestApp(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Wait for the mount to index the button.
	select {
	case <-a.Redraw():
	case <-time.After(5 * time.Second):
		t.Fatal("runtime never rendered")
	}
	a.ComputeDirtyRegions()

	if !a.DispatchRawEvent(retained.PointerMove{X: 4, Y: 4}) {
		t.Fatal("entering the button did not request a repaint")
	}
	var hovered retained.NodeID
	a.dom.View(func() error {
		hovered = a.dom.HoverTarget()
		return nil
	})
	if hovered == retained.NoNode {
		t.Fatal("button not hovered")
	}
	if d := a.ComputeDirtyRegions(); d.Empty() {
		t.Error("hover change left no dirty nodes")
	}
	if a.DispatchRawEvent(retained.PointerMove{X: 5, Y: 5}) {
		t.Error("moving within the button requested a repaint")
	}

	a.DispatchRawEvent(retained.PointerButton{Button: retained.MouseButtonLeft, Pressed: true})
	a.DispatchRawEvent(retained.PointerButton{Button: retained.MouseButtonLeft})
	select {
	case ev := <-clicks:
		if ev.Target != hovered || ev.Button != retained.MouseButtonLeft {
			t.Errorf("click = %+v, want target %d", ev, hovered)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("click handler never ran")
	}

	if !a.DispatchRawEvent(retained.PointerMove{X: 50, Y: 40}) {
		t.Error("leaving the button did not request a repaint")
	}
}
