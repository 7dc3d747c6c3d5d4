// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options controls the logger built by New.
type Options struct {
	Level string
	// Text switches to a human-readable handler for local runs.
	Text   bool
	Output io.Writer
	// Attrs are attached to every record, e.g. app and env.
	Attrs []slog.Attr
}

// New creates a slog logger at the provided level. If the level string is
// invalid it defaults to info.
func New(opts Options) *slog.Logger {
	return slog.New(NewHandler(opts))
}

// NewHandler returns the handler behind New so other libraries (gorm) can log
// through the same sink.
func NewHandler(opts Options) slog.Handler {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	hopts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if opts.Text {
		h = slog.NewTextHandler(out, hopts)
	} else {
		h = slog.NewJSONHandler(out, hopts)
	}
	if len(opts.Attrs) > 0 {
		h = h.WithAttrs(opts.Attrs)
	}
	return h
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
