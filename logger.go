package indexlib

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/indexlib/version"
)

// Logger wraps slog.Logger with indexlib-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithFence adds a fence field to the logger.
func (l *Logger) WithFence(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("fence", name),
	}
}

// WithTable adds a table root field to the logger.
func (l *Logger) WithTable(root string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", root),
	}
}

// LogCommit logs a version commit.
func (l *Logger) LogCommit(ctx context.Context, id version.VersionID, published bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"version_id", id,
			"publish", published,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"version_id", id,
			"publish", published,
		)
	}
}

// LogRecovery logs the recovery performed on open.
func (l *Logger) LogRecovery(ctx context.Context, id version.VersionID, adopted, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recovery failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "recovery completed",
			"version_id", id,
			"adopted", adopted,
			"removed", removed,
		)
	}
}

// LogTask logs an index task run.
func (l *Logger) LogTask(ctx context.Context, taskName string, operations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "task failed",
			"task", taskName,
			"operations", operations,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "task completed",
			"task", taskName,
			"operations", operations,
		)
	}
}

// LogVacuum logs a version garbage collection.
func (l *Logger) LogVacuum(ctx context.Context, versionsRemoved, segmentsRemoved int, err error) {
	if err != nil {
		l.WarnContext(ctx, "vacuum completed with failures",
			"versions_removed", versionsRemoved,
			"segments_removed", segmentsRemoved,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "vacuum completed",
			"versions_removed", versionsRemoved,
			"segments_removed", segmentsRemoved,
		)
	}
}
