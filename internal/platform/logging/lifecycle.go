package logging

import (
	"context"

	"go.uber.org/zap"
)

// LogLifecycleEvent records a server lifecycle transition such as "listening" or "stopped".
func LogLifecycleEvent(ctx context.Context, event, backend, addr string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("lifecycle.event", event),
		zap.String("lifecycle.backend", backend),
		zap.String("lifecycle.addr", addr),
	}, fields...)
	LoggerFromContext(ctx).Info("Lifecycle event", fields...)
}
