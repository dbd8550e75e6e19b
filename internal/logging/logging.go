// Package logging provides structured logging setup for bk.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Setup initializes the default slog logger writing to w (stderr when nil).
// Dev mode uses tint's colored text at debug level; prod uses JSON at info.
func Setup(devMode bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if devMode {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05.000",
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	slog.SetDefault(slog.New(handler))
}
