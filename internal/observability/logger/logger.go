// Package logger carries request-scoped logging helpers and masking for
// billing-sensitive fields.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	obscontext "github.com/mediflow/billing/internal/observability/context"
)

// FromContext returns the global logger enriched with trace and request metadata.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}

	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if operator := obscontext.OperatorNameFromContext(ctx); operator != "" {
		fields = append(fields, zap.String("operator", operator))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
