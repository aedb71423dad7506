package commands

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/agiangrant/sjik"
	"github.com/agiangrant/sjik/retained"
)

var mouseButtons = [...]struct {
	key    ebiten.MouseButton
	button retained.MouseButton
}{
	{ebiten.MouseButtonLeft, retained.MouseButtonLeft},
	{ebiten.MouseButtonRight, retained.MouseButtonRight},
	{ebiten.MouseButtonMiddle, retained.MouseButtonMiddle},
}

// window adapts the App to ebiten's game loop. Input is polled in Update
// and translated to raw events; the composited output is read back from the
// GPU and written to the screen image.
type window struct {
	ctx    context.Context
	app    *sjik.App
	player *player

	cursorX, cursorY int
	pressed          [len(mouseButtons)]bool
	width, height    int

	dirty  bool
	pixels []byte
	pw, ph int
}

func newWindow(ctx context.Context, app *sjik.App, p *player) *window {
	return &window{ctx: ctx, app: app, player: p, cursorX: -1, cursorY: -1, dirty: true}
}

func (w *window) dispatch(ev retained.RawEvent) {
	if w.app.DispatchRawEvent(ev) {
		w.dirty = true
	}
}

func (w *window) Update() error {
	select {
	case <-w.ctx.Done():
		return ebiten.Termination
	default:
	}

	if x, y := ebiten.CursorPosition(); x != w.cursorX || y != w.cursorY {
		w.cursorX, w.cursorY = x, y
		w.dispatch(retained.PointerMove{X: float32(x), Y: float32(y)})
	}
	for i, mb := range mouseButtons {
		if down := ebiten.IsMouseButtonPressed(mb.key); down != w.pressed[i] {
			w.pressed[i] = down
			w.dispatch(retained.PointerButton{Button: mb.button, Pressed: down})
		}
	}
	if w.player != nil {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeySpace):
			w.player.Toggle()
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
			w.player.SeekBy(-seekStep)
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
			w.player.SeekBy(seekStep)
		}
	}

	select {
	case <-w.app.Redraw():
		w.dirty = true
	default:
	}
	if d := w.app.ComputeDirtyRegions(); !d.Empty() {
		w.dirty = true
	}
	if !w.dirty {
		return nil
	}
	w.dirty = false

	if err := w.app.RenderFrame(); err != nil {
		return err
	}
	px, pw, ph, err := w.app.Output()
	if err != nil {
		return err
	}
	w.pixels, w.pw, w.ph = px, pw, ph
	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	if w.pixels == nil {
		return
	}
	// Skip the frame between a resize and the next readback.
	if b := screen.Bounds(); b.Dx() != w.pw || b.Dy() != w.ph {
		return
	}
	screen.WritePixels(w.pixels)
}

func (w *window) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != w.width || outsideHeight != w.height {
		w.width, w.height = outsideWidth, outsideHeight
		w.dispatch(retained.Resize{Width: float32(outsideWidth), Height: float32(outsideHeight)})
	}
	return outsideWidth, outsideHeight
}
