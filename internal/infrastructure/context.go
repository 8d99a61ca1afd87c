package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type traceIDKey struct{}

// WithTraceID returns ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// GetTraceID returns the trace ID carried by ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// NewRunID returns an identifier for one batch run.
func NewRunID() string {
	return uuid.NewString()
}

// EnsureTraceID returns ctx carrying a trace ID, adding a fresh one when it
// has none.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, NewRunID())
	}
	return ctx
}

// WithComponent tags logger with a component name; nil means the global
// logger.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}
