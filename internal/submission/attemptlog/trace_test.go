package attemptlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestNewEntryWithoutSpan(t *testing.T) {
	e := NewEntry(context.Background(), "ORD-1", StatusFailed, "api", "", []string{"timeout"})

	assert.Equal(t, "ORD-1", e.OrderID)
	assert.Equal(t, `["timeout"]`, e.ErrorMessages)
	assert.Empty(t, e.TraceID)
	assert.False(t, e.UpdatedAt.IsZero())
}

func TestNewEntryWithSpan(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	e := NewEntry(ctx, "ORD-2", StatusSubmitting, "relay", "{}", nil)

	assert.Equal(t, "[]", e.ErrorMessages)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", e.TraceID)
	assert.Equal(t, "00f067aa0ba902b7", e.SpanID)
}
