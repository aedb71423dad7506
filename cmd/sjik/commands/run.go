package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	"github.com/agiangrant/sjik"
	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/vdom"

	// Register every hal backend available on this platform.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// Run implements the 'sjik run' command
func Run(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", sjik.ConfigFile, "Path to the configuration file")
	page := fs.String("page", "", "HTML page to render (default: from sjik.toml)")
	mediaPath := fs.String("media", "", "Media file played behind the page (default: from sjik.toml)")
	backend := fs.String("backend", "", "GPU backend (default: from sjik.toml)")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Parse(args)

	cfg, err := sjik.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *page != "" {
		cfg.App.Page = *page
	}
	if *mediaPath != "" {
		cfg.Media.Source = *mediaPath
	}
	if *backend != "" {
		cfg.GPU.Backend = *backend
	}
	if err := setupLogging(cfg.Log.Level, *verbose); err != nil {
		return err
	}

	root, err := loadPage(cfg.App.Page)
	if err != nil {
		return err
	}
	return serve(cfg, root)
}

// loadPage parses the page once; the component returns a fresh copy of the
// tree on every render.
func loadPage(path string) (vdom.Component, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	tree, err := vdom.ParseHTML(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return func() *vdom.VNode { return tree.Clone() }, nil
}

// serve opens the GPU device and the window, and supervises the runtime and
// the media workers until the window closes or a worker fails.
func serve(cfg sjik.Config, root vdom.Component) error {
	m, err := gpu.Open(cfg.GPU.Backend)
	if err != nil {
		return err
	}
	defer m.Close()

	app, err := sjik.NewApp(cfg, m, root)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error { return ignoreCanceled(app.Run(ctx)) })

	var pl *player
	if cfg.Media.Source != "" {
		pl, err = startPlayer(ctx, g, cfg, app)
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		defer pl.Close()
	}

	w := newWindow(ctx, app, pl)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	runErr := ebiten.RunGame(w)

	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return runErr
}

func ignoreCanceled(err error) error {
	if err == context.Canceled || err == vdom.ErrShutdown {
		return nil
	}
	return err
}
