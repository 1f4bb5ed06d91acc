package sketchtree

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with sketchtree-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewTextLogger(slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON lines to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes logfmt text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithTree adds the tree name to the logger.
func (l *Logger) WithTree(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tree", name),
	}
}

// WithLeaf adds the leaf name to the logger.
func (l *Logger) WithLeaf(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("leaf", name),
	}
}

// LogLoad logs a leaf payload read.
func (l *Logger) LogLoad(ctx context.Context, key string, size int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "leaf load failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "leaf loaded",
			"key", key,
			"bytes", size,
			"elapsed", elapsed,
		)
	}
}

// LogSave logs a leaf payload write.
func (l *Logger) LogSave(ctx context.Context, key, storedKey string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "leaf save failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "leaf saved",
			"key", key,
			"stored_key", storedKey,
			"bytes", size,
		)
	}
}

// LogSearch logs a completed or aborted search.
func (l *Logger) LogSearch(ctx context.Context, threshold float64, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"threshold", threshold,
			"results", resultsFound,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"threshold", threshold,
			"results", resultsFound,
		)
	}
}

// LogIndexLoad logs a tree descriptor load.
func (l *Logger) LogIndexLoad(ctx context.Context, path string, leaves int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index loaded",
			"path", path,
			"leaves", leaves,
		)
	}
}
