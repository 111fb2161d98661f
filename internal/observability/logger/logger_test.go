package logger

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	obscontext "github.com/mediflow/billing/internal/observability/context"
)

func withObservedGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	orig := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })
	return logs
}

func TestFromContextCarriesTraceAndRequestID(t *testing.T) {
	logs := withObservedGlobal(t)

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = obscontext.WithRequestID(ctx, "req-42")

	FromContext(ctx).Info("payment collected")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != traceID.String() {
		t.Fatalf("trace_id = %v", fields["trace_id"])
	}
	if fields["span_id"] != spanID.String() {
		t.Fatalf("span_id = %v", fields["span_id"])
	}
	if fields["request_id"] != "req-42" {
		t.Fatalf("request_id = %v", fields["request_id"])
	}
}

func TestFromContextWithoutMetadata(t *testing.T) {
	logs := withObservedGlobal(t)

	FromContext(context.Background()).Info("plain")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if len(entries[0].Context) != 0 {
		t.Fatalf("fields = %v, want none", entries[0].Context)
	}
}
