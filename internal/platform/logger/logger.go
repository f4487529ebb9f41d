// Package logger provides structured logging functionality for the application.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/pathwise/internal/config"
)

// ParseLevel converts a configured level name into a slog.Level.
// The second result is false when the name is not recognized.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured JSON logger writing to
// stdout with the appropriate log level and sets it as the default logger.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	return SetupWithWriter(cfg, os.Stdout)
}

// SetupWithWriter is Setup with an explicit output destination.
func SetupWithWriter(cfg config.ServerConfig, out io.Writer) (*slog.Logger, error) {
	level, ok := ParseLevel(cfg.LogLevel)
	if !ok {
		// Create a temporary logger to output the warning
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)

	// Set this logger as the default for the application
	slog.SetDefault(logger)

	return logger, nil
}
