package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates the SDK logger. The level is taken from ORCA_LOG_LEVEL;
// components derive their own loggers via log.With("component", ...).
func NewLogger() *slog.Logger {
	level := slog.LevelInfo

	if val := strings.ToLower(os.Getenv("ORCA_LOG_LEVEL")); val != "" {
		switch val {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			// unknown value, keep default
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time for cleaner output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
