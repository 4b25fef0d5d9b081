// Package obslog provides the structured logging used across the runtime:
// a thin wrapper over log/slog with a global default logger whose level is
// controlled by the LOG_LEVEL environment variable.
package obslog

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Default is the global structured logger. Safe for concurrent use.
var Default *slog.Logger

func init() {
	Default = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

// SetLevel replaces the default logger at the given level.
func SetLevel(level slog.Level) {
	Default = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Info logs at info level. args are key-value pairs.
func Info(msg string, args ...any) { Default.Info(msg, args...) }

// InfoContext logs at info level with context for trace correlation.
func InfoContext(ctx context.Context, msg string, args ...any) { Default.InfoContext(ctx, msg, args...) }

// Debug logs at debug level.
func Debug(msg string, args ...any) { Default.Debug(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Default.Warn(msg, args...) }

// WarnContext logs at warn level with context.
func WarnContext(ctx context.Context, msg string, args ...any) { Default.WarnContext(ctx, msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Default.Error(msg, args...) }

// ErrorContext logs at error level with context.
func ErrorContext(ctx context.Context, msg string, args ...any) { Default.ErrorContext(ctx, msg, args...) }
