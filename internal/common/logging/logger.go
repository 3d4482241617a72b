// internal/common/logging/logger.go
// Process-wide slog setup

package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options controls how New builds the logger.
type Options struct {
	Level          string
	Format         string // "json" or "text"
	AddSource      bool
	BufferEnabled  bool
	BufferCapacity int
	FlushLevel     string
}

// ParseLevel accepts debug, info, warn and error. Unknown input maps to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New configures the default slog logger. The returned buffer is nil when
// buffering is disabled; callers flush it on shutdown.
func New(w io.Writer, opts Options) (*slog.Logger, *BufferHandler) {
	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	var buffer *BufferHandler
	if opts.BufferEnabled {
		buffer = NewBufferHandler(handler, opts.BufferCapacity, ParseLevel(opts.FlushLevel))
		handler = buffer
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, buffer
}
