package gosmo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with gosmo-specific context.
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

// WithSamples adds a samples field to the logger.
func (l *Logger) WithSamples(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("samples", n),
	}
}

// LogTrainStart logs the start of a training run.
func (l *Logger) LogTrainStart(ctx context.Context, samples, features int, kernel any, cfg Config) {
	l.InfoContext(ctx, "training started",
		"samples", samples,
		"features", features,
		"kernel", fmt.Sprint(kernel),
		"c", cfg.C,
		"tolerance", cfg.Tolerance,
		"shrinking", cfg.Shrinking,
	)
}

// LogTrainDone logs the outcome of a training run.
func (l *Logger) LogTrainDone(ctx context.Context, res *Result, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "training failed",
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	if !res.Converged {
		l.WarnContext(ctx, "training stopped before convergence",
			"iterations", res.Iterations,
			"violation", res.Violation,
			"support_vectors", res.Model.NumSV(),
			"elapsed", elapsed,
		)
		return
	}
	l.InfoContext(ctx, "training completed",
		"iterations", res.Iterations,
		"violation", res.Violation,
		"objective", res.Objective,
		"support_vectors", res.Model.NumSV(),
		"bias", res.Model.Bias,
		"elapsed", elapsed,
	)
}
