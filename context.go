package halclient

import (
	"context"
	"log/slog"
)

// loggerKey is an unexported type to prevent collisions with context keys from other packages.
type loggerKey struct{}

// WithLogger returns a child context carrying the logger used by fetchers and
// mappers for calls made with it.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom extracts the logger stored by WithLogger. If none is found it
// returns fallback, or slog.Default() when fallback is nil.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
