// Package logging provides structured logging on top of log/slog with the
// field names used across match sessions, jobs and the HTTP server.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger wraps slog.Logger. It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing to w. format is "json" or "text";
// anything else falls back to text. A nil writer means stderr.
func NewLogger(w io.Writer, level, format string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NopLogger discards all output.
func NopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))}
}

// ParseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger carrying the given key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithSession tags entries with a session identifier.
func (l *Logger) WithSession(id string) *Logger {
	return l.With("session_id", id)
}

// WithJob tags entries with a background job identifier.
func (l *Logger) WithJob(id string) *Logger {
	return l.With("job_id", id)
}

// LogRun logs the outcome of a match run.
func (l *Logger) LogRun(ctx context.Context, observed, reference, candidates, matches int, rms float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match run failed",
			"observed", observed,
			"reference", reference,
			"candidates", candidates,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "match run completed",
		"observed", observed,
		"reference", reference,
		"candidates", candidates,
		"matches", matches,
		"rms_arcsec", rms,
	)
}
