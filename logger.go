package wah

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with bitmap-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to w.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable text logs to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithBitmap adds a bitmap name field to the logger.
func (l *Logger) WithBitmap(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("bitmap", name),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

// LogLoad logs a bitmap load from a blob store or cache.
func (l *Logger) LogLoad(ctx context.Context, name string, size int64, cached bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"bitmap", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"bitmap", name,
			"bytes", size,
			"cached", cached,
		)
	}
}

// LogStore logs a bitmap write.
func (l *Logger) LogStore(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "store failed",
			"bitmap", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "store completed",
			"bitmap", name,
			"bytes", size,
		)
	}
}

// LogQuery logs the evaluation of a query expression.
func (l *Logger) LogQuery(ctx context.Context, expr string, count uint64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"expr", expr,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"expr", expr,
			"count", count,
			"elapsed", elapsed,
		)
	}
}

// LogCommit logs a manifest commit.
func (l *Logger) LogCommit(ctx context.Context, version uint64, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"version", version,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"version", version,
			"entries", entries,
		)
	}
}

// LogEvict logs a cache eviction.
func (l *Logger) LogEvict(ctx context.Context, key string, size int64) {
	l.DebugContext(ctx, "cache eviction",
		"key", key,
		"bytes", size,
	)
}
