package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithTraceAddsIDs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &zapLogger{logger: zap.New(core)}

	WithTrace(context.Background(), base).Info("plain")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	WithTrace(ctx, base).Info("traced")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, sc.TraceID().String(), entries[1].ContextMap()["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entries[1].ContextMap()["span_id"])
}

func TestErrorAppendsCause(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &zapLogger{logger: zap.New(core)}

	l.Error("save failed", assert.AnError)
	l.Error("no cause", nil)

	entries := logs.All()
	assert.Equal(t, assert.AnError.Error(), entries[0].ContextMap()["error"])
	assert.NotContains(t, entries[1].ContextMap(), "error")
}
