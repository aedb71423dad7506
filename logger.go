package sjik

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/agiangrant/sjik/internal/gpu"
	"github.com/agiangrant/sjik/media"
	"github.com/agiangrant/sjik/render"
	"github.com/agiangrant/sjik/retained"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger for sjik and every subsystem it drives. By
// default nothing is logged. Pass nil to restore the silent default.
//
// Log levels:
//   - Debug: per-frame diagnostics
//   - Info: device, decoder and stream lifecycle
//   - Warn: degraded paths such as audio ring overflow
//   - Error: missing or undecodable assets
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
	retained.SetLogger(l)
	render.SetLogger(l)
	media.SetLogger(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger { return loggerPtr.Load() }

func slogger() *slog.Logger { return loggerPtr.Load() }

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}
