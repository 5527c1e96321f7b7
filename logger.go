package annforest

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with consistent field names for index
// operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil,
// a text handler to stderr at info level is used.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// LogBuild logs a completed or failed index build.
func (l *Logger) LogBuild(ctx context.Context, trees, items int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"trees", trees,
			"items", items,
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"trees", trees,
			"items", items,
			"duration", duration,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, found int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"found", found,
			"duration", duration,
		)
	}
}

// LogSave logs an index save.
func (l *Logger) LogSave(ctx context.Context, target string, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"target", target,
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"target", target,
			"duration", duration,
		)
	}
}

// LogLoad logs an index load.
func (l *Logger) LogLoad(ctx context.Context, source string, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"source", source,
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"source", source,
			"duration", duration,
		)
	}
}
