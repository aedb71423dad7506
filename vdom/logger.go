package vdom

import (
	"log/slog"

	"github.com/agiangrant/sjik/retained"
)

// vdom logs through the retained package logger so both layers of the UI
// share one configuration.
func slogger() *slog.Logger { return retained.Logger() }
