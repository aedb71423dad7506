package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/agiangrant/sjik"
	"github.com/agiangrant/sjik/tw"
)

// Palette implements the 'sjik palette' command. It prints the built-in
// palette merged with the theme palette from sjik.toml, in the format
// accepted by [theme] palette.
func Palette(args []string) error {
	fs := flag.NewFlagSet("palette", flag.ExitOnError)
	configPath := fs.String("config", sjik.ConfigFile, "Path to the configuration file")
	out := fs.String("o", "", "Write to a file instead of stdout")
	fs.Parse(args)

	cfg, err := sjik.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := sjik.LoadTheme(cfg.Theme.Palette); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	return writePalette(w, tw.ActivePalette())
}

func writePalette(w io.Writer, p tw.Palette) error {
	enc := toml.NewEncoder(w)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode palette: %w", err)
	}
	return nil
}
