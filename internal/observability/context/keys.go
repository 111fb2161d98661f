// Package context carries request-scoped identifiers used to enrich logs.
// Audit attribution lives in the auditcontext package; this one only feeds
// observability output.
package context

import "context"

type contextKey string

const (
	requestIDKey    contextKey = "observability_request_id"
	operatorNameKey contextKey = "observability_operator_name"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithOperatorName(ctx context.Context, operatorName string) context.Context {
	if operatorName == "" {
		return ctx
	}
	return context.WithValue(ctx, operatorNameKey, operatorName)
}

func OperatorNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(operatorNameKey).(string)
	return value
}
