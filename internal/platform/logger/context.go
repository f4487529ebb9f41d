package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var loggerKey = contextKey{}

// WithLogger returns a copy of ctx carrying logger.
// It panics if logger is nil.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		// ALLOW-PANIC: storing a nil logger is a programming error
		panic("logger.WithLogger: nil logger")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or fallback when
// ctx carries none. Components pass their own child logger as fallback so
// request-scoped attributes (trace_id) win when present.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
