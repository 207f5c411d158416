package psmatrix

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/psmatrix/partition"
)

// Logger wraps slog.Logger with psmatrix-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithMatrix adds a matrix id field to the logger.
func (l *Logger) WithMatrix(matrixID int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("matrix", matrixID),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogGet logs a get operation of any flavor.
func (l *Logger) LogGet(ctx context.Context, op string, matrixID int32, count, partitions int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"matrix", matrixID,
			"count", count,
			"partitions", partitions,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"matrix", matrixID,
			"count", count,
			"partitions", partitions,
		)
	}
}

// LogUpdate logs an indexed update.
func (l *Logger) LogUpdate(ctx context.Context, matrixID int32, applied int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"matrix", matrixID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed",
			"matrix", matrixID,
			"applied", applied,
		)
	}
}

// LogPartitionFailure logs each failed partition of a fan-out.
func (l *Logger) LogPartitionFailure(ctx context.Context, key partition.Key, err error) {
	l.WarnContext(ctx, "partition failed",
		"matrix", key.MatrixID,
		"partition", key.PartitionID,
		"addr", key.Addr,
		"error", err,
	)
}
