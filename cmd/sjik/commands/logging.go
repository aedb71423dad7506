package commands

import (
	"log/slog"
	"os"

	"github.com/agiangrant/sjik"
)

// setupLogging installs a text handler on stderr at the configured level.
// verbose forces debug output.
func setupLogging(level string, verbose bool) error {
	lvl, err := sjik.ParseLevel(level)
	if err != nil {
		return err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(l)
	sjik.SetLogger(l)
	return nil
}
