package relational

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogTrain logs a model training call.
func (l *Logger) LogTrain(ctx context.Context, labelled int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "training failed",
			"labelled", labelled,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "training completed",
			"labelled", labelled,
		)
	}
}

// LogEvaluate logs a performance measurement.
func (l *Logger) LogEvaluate(ctx context.Context, key string, metrics int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "evaluation failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "evaluation completed",
			"key", key,
			"metrics", metrics,
		)
	}
}

// LogStep logs a selection step.
func (l *Logger) LogStep(ctx context.Context, selector string, numAnnotate, selected int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "selection step failed",
			"selector", selector,
			"num_annotate", numAnnotate,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "selection step completed",
			"selector", selector,
			"num_annotate", numAnnotate,
			"selected", selected,
		)
	}
}

// LogUpdate logs an annotation update and the resulting partition state.
func (l *Logger) LogUpdate(ctx context.Context, iteration, labelled, unlabelled int, percentage float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "annotation update failed",
			"iteration", iteration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "annotation update completed",
			"iteration", iteration,
			"labelled", labelled,
			"unlabelled", unlabelled,
			"percentage_labelled", percentage,
		)
	}
}
