// Package sjik hosts a retained UI and a media pipeline on one GPU device.
//
// An App owns the DOM, the event router, the vdom runtime and the three
// render passes. The window loop feeds it raw input through
// DispatchRawEvent, asks it to draw with RenderFrame and reads the result
// back with Output. A media Pacer hands decoded frames to PresentVideo from
// its own goroutine.
package sjik

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/media"
	"github.com/agiangrant/sjik/render"
	"github.com/agiangrant/sjik/retained"
	"github.com/agiangrant/sjik/text"
	"github.com/agiangrant/sjik/tw"
	"github.com/agiangrant/sjik/vdom"
)

// App is the host surface.
type App struct {
	cfg    Config
	gpu    *gpu.Manager
	dom    *retained.DOM
	router *retained.EventRouter
	rt     *vdom.Runtime
	state  retained.StateContext
	faces  *text.Faces

	// mu serializes the render passes between ApplySize and RenderFrame.
	mu         sync.Mutex
	compositor *render.Compositor
	media      *render.MediaPass
	present    *render.PresentPass
	drawn      *media.Frame

	latest atomic.Pointer[media.Frame]
	redraw chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewApp builds the DOM and render passes for root at the configured
// window size. Nothing is rendered until Run starts the runtime.
func NewApp(cfg Config, m *gpu.Manager, root vdom.Component) (*App, error) {
	if err := LoadTheme(cfg.Theme.Palette); err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		gpu:    m,
		dom:    retained.NewDOM(retained.NewTextures()),
		router: retained.NewEventRouter(),
		faces:  text.NewFaces(),
		redraw: make(chan struct{}, 1),
	}
	a.router.UseQuadtree(true)
	a.state = retained.StateContext{
		Measurer: a.faces,
		Images:   retained.AssetLoader{Dir: cfg.Assets.Dir},
	}
	a.rt = vdom.NewRuntime(a.dom, root, vdom.RuntimeOptions{
		State:   a.state,
		OnFrame: a.onFrame,
	})

	w, h := uint32(cfg.Window.Width), uint32(cfg.Window.Height)
	a.dom.Update(func() error {
		a.dom.SetSize(float32(w), float32(h))
		return nil
	})

	var err error
	if a.compositor, err = render.NewCompositor(m, a.dom.Textures(), a.faces, w, h); err != nil {
		return nil, err
	}
	if a.media, err = render.NewMediaPass(m, w, h); err != nil {
		a.compositor.Close()
		return nil, err
	}
	if a.present, err = render.NewPresentPass(m, w, h); err != nil {
		a.media.Close()
		a.compositor.Close()
		return nil, err
	}
	slogger().Info("app created", "name", cfg.App.Name, "width", w, "height", h, "backend", m.Backend().String())
	return a, nil
}

// LoadTheme merges the palette file at path over the built-in colors. An
// empty path restores the defaults.
func LoadTheme(path string) error {
	if path == "" {
		tw.SetPalette(nil)
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open palette: %w", err)
	}
	defer f.Close()
	p, err := tw.LoadPalette(f)
	if err != nil {
		return fmt.Errorf("failed to load palette %s: %w", path, err)
	}
	tw.SetPalette(p)
	return nil
}

// DOM returns the retained DOM.
func (a *App) DOM() *retained.DOM { return a.dom }

// Runtime returns the vdom runtime.
func (a *App) Runtime() *vdom.Runtime { return a.rt }

// Config returns the configuration the app was built with.
func (a *App) Config() Config { return a.cfg }

// Run renders the root component and serves re-renders until ctx is done.
func (a *App) Run(ctx context.Context) error { return a.rt.Run(ctx) }

// Redraw delivers a value whenever the DOM or the video frame changed since
// the last receive.
func (a *App) Redraw() <-chan struct{} { return a.redraw }

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

// onFrame runs on the runtime goroutine after a render changed the DOM.
func (a *App) onFrame([]retained.NodeID) {
	a.dom.Update(func() error {
		a.router.Refresh(a.dom)
		return nil
	})
	a.requestRedraw()
}

// restyle runs the state pass after an input change. Caller must hold the
// DOM write lock.
func (a *App) restyle() error {
	changed, err := a.dom.UpdateState(a.state)
	if err != nil {
		return err
	}
	a.dom.MarkDirty(changed...)
	a.router.Refresh(a.dom)
	return nil
}

// ApplySize resizes the viewport and the render passes. Zero sizes are
// ignored.
func (a *App) ApplySize(w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	err := a.dom.Update(func() error {
		if !a.dom.SetSize(float32(w), float32(h)) {
			return nil
		}
		return a.restyle()
	})
	if err != nil {
		return fmt.Errorf("sjik: resize: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.compositor.Resize(uint32(w), uint32(h)); err != nil {
		return err
	}
	if err := a.media.Resize(uint32(w), uint32(h)); err != nil {
		return err
	}
	// The media attachment was cleared; draw the current frame again.
	a.drawn = nil
	return a.present.Resize(uint32(w), uint32(h))
}

// DispatchRawEvent routes ev through the hit tester and forwards the
// resulting DOM events to the runtime. It reports whether the window needs a
// repaint.
func (a *App) DispatchRawEvent(ev retained.RawEvent) bool {
	if r, ok := ev.(retained.Resize); ok {
		if err := a.ApplySize(int(r.Width), int(r.Height)); err != nil {
			slogger().Error("resize failed", "err", err)
		}
		return r.Width > 0 && r.Height > 0
	}

	var (
		repaint bool
		events  []retained.Event
	)
	err := a.dom.Update(func() error {
		repaint = a.router.RegisterEvent(ev, a.dom)
		events = a.router.Drain()
		if !repaint {
			return nil
		}
		return a.restyle()
	})
	if err != nil {
		slogger().Error("state pass failed", "event", fmt.Sprintf("%T", ev), "err", err)
	}
	// Send outside the lock: the runtime needs it to apply the next frame.
	for _, e := range events {
		if !a.rt.Send(e) {
			break
		}
	}
	return repaint || a.dom.Dirty()
}

// ComputeDirtyRegions drains the set of nodes that need repainting.
func (a *App) ComputeDirtyRegions() retained.DirtyNodes {
	return a.dom.Clean()
}

// PresentVideo publishes f as the newest video frame. It is the pacer's
// present callback and may be called from any goroutine.
func (a *App) PresentVideo(f *media.Frame) {
	a.latest.Store(f)
	a.requestRedraw()
}

// RenderFrame draws the UI, uploads the newest video frame if it changed and
// composites both into the output.
func (a *App) RenderFrame() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.compositor.Frame(a.dom); err != nil {
		return err
	}

	mediaTex := gpu.InvalidHandle
	if f := a.latest.Load(); f != nil {
		if !a.media.Ready() {
			if err := a.media.SetupBuffers(f.Width, f.Height, f); err != nil {
				return err
			}
		}
		if f != a.drawn {
			if err := a.media.Draw(f); err != nil {
				return err
			}
			a.drawn = f
		}
		mediaTex = a.media.Target()
	}
	return a.present.Draw(a.compositor.UI().Target(), mediaTex)
}

// Output reads back the composited image as tightly packed RGBA8 rows.
func (a *App) Output() ([]byte, int, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, h := a.present.Size()
	px, err := a.gpu.ReadTexture(a.present.Output(), w, h)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sjik: read output: %w", err)
	}
	return px, int(w), int(h), nil
}

// Close stops the runtime and releases every GPU resource the app created.
// The gpu.Manager itself stays open. Close is idempotent.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.rt.Shutdown()
		a.mu.Lock()
		defer a.mu.Unlock()
		a.present.Close()
		a.media.Close()
		a.compositor.Close()
		a.closeErr = a.faces.Close()
	})
	return a.closeErr
}
