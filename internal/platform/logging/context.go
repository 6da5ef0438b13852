package logging

import (
	"context"

	"go.uber.org/zap"
)

type scopeKey struct{}

// requestScope is the per-request logging state stored in the context.
type requestScope struct {
	logger  *zap.Logger
	traceID string
}

func scopeFromContext(ctx context.Context) *requestScope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*requestScope)
	return s
}

// LoggerFromContext returns the request-scoped logger if present, otherwise falls back to the global logger.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if s := scopeFromContext(ctx); s != nil && s.logger != nil {
		return s.logger
	}
	return Logger()
}

// TraceIDFromContext returns the correlation identifier (trace resource or request ID), or "" when absent.
func TraceIDFromContext(ctx context.Context) string {
	if s := scopeFromContext(ctx); s != nil {
		return s.traceID
	}
	return ""
}

// WithLogger returns a copy of ctx carrying logger, preserving any trace ID already stored.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	next := &requestScope{logger: logger}
	if s := scopeFromContext(ctx); s != nil {
		next.traceID = s.traceID
	}
	return context.WithValue(ctx, scopeKey{}, next)
}

func withScope(ctx context.Context, logger *zap.Logger, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, &requestScope{logger: logger, traceID: traceID})
}

// LogInfo writes an informational message using the request-aware logger.
func LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Info(msg, fields...)
}

// LogWarn writes a warning message using the request-aware logger.
func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Warn(msg, fields...)
}

// LogError writes an error message and appends the error field when err is non-nil.
func LogError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	LoggerFromContext(ctx).Error(msg, fields...)
}

// LogFatal logs with fatal severity and terminates the process.
func LogFatal(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	LoggerFromContext(ctx).Fatal(msg, fields...)
}
