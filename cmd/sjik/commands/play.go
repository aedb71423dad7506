package commands

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/agiangrant/sjik"
	"github.com/agiangrant/sjik/vdom"
)

// Play implements the 'sjik play' command
func Play(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	configPath := fs.String("config", sjik.ConfigFile, "Path to the configuration file")
	hwaccel := fs.String("hwaccel", "", "Hardware decoder device type, e.g. vaapi or videotoolbox")
	backend := fs.String("backend", "", "GPU backend (default: from sjik.toml)")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sjik play [options] <file>")
	}

	cfg, err := sjik.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Media.Source = fs.Arg(0)
	cfg.Window.Title = filepath.Base(cfg.Media.Source)
	if *hwaccel != "" {
		cfg.Media.HWAccel = *hwaccel
	}
	if *backend != "" {
		cfg.GPU.Backend = *backend
	}
	if err := setupLogging(cfg.Log.Level, *verbose); err != nil {
		return err
	}

	// A transparent root leaves the video visible.
	return serve(cfg, func() *vdom.VNode { return vdom.Div("w-full h-full") })
}
