// Package logging provides the injected logger used across mcp-docsrs.
//
// The server speaks MCP over stdout, so all log output defaults to
// stderr. Components receive a Logger at construction; there is no
// package-level logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the logging interface injected into the cache, fetcher and
// server. It abstracts slog so tests can swap in a nop implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Options configures the logger built by New.
type Options struct {
	// Verbose toggles debug level logging when true.
	Verbose bool
	// JSON emits structured JSON records instead of text.
	JSON bool
	// Writer directs log output; defaults to os.Stderr when nil.
	Writer io.Writer
}

// New constructs a Logger with mcp-docsrs defaults.
func New(opts Options) Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	}
	return FromSlog(slog.New(handler))
}

// FromSlog wraps an existing *slog.Logger in the Logger interface.
func FromSlog(l *slog.Logger) Logger {
	return &slogLogger{logger: l}
}

type slogLogger struct {
	logger *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: s.logger.With(args...)}
}

var _ Logger = (*slogLogger)(nil)

// NopLogger discards all output. Useful in tests and as a safe default
// for components constructed without an explicit logger.
type NopLogger struct{}

// NewNopLogger creates a new NopLogger.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(_ string, _ ...any) {}
func (n *NopLogger) Info(_ string, _ ...any)  {}
func (n *NopLogger) Warn(_ string, _ ...any)  {}
func (n *NopLogger) Error(_ string, _ ...any) {}

// With returns the same NopLogger.
func (n *NopLogger) With(_ ...any) Logger { return n }

var _ Logger = (*NopLogger)(nil)
