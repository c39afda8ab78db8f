package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func withRecordingProvider(t *testing.T) func() []attribute.KeyValue {
	t.Helper()
	tp, recorder := setupSpanRecorder(t)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return func() []attribute.KeyValue {
		ended := recorder.Ended()
		require.NotEmpty(t, ended)
		return ended[len(ended)-1].Attributes()
	}
}

func TestStartServiceSpan(t *testing.T) {
	lastAttrs := withRecordingProvider(t)
	id := uuid.New()

	ctx, span := StartServiceSpan(context.Background(), "payment_confirmation", "confirm",
		SpanAttrPaymentID, id,
		SpanAttrStacked, true,
		42, "ignored non-string key",
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrSweptCount, int64(3))
	span.End()

	attrs := attrMap(lastAttrs())
	assert.Equal(t, id.String(), attrs[SpanAttrPaymentID].AsString())
	assert.True(t, attrs[SpanAttrStacked].AsBool())
	assert.Equal(t, int64(3), attrs[SpanAttrSweptCount].AsInt64())
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	tp, recorder := setupSpanRecorder(t)
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	AddEvent(span, "retry", "attempt", 2)
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	require.Len(t, got.Events(), 2)
	assert.Equal(t, "retry", got.Events()[1].Name)
}

func TestNilSpanHelpers(t *testing.T) {
	var span trace.Span
	assert.NotPanics(t, func() {
		SetAttributes(span, "k", "v")
		RecordError(span, errors.New("x"))
		AddEvent(span, "e")
	})
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.String("s", "v"), toAttribute("s", "v"))
	assert.Equal(t, attribute.Int("i", 1), toAttribute("i", 1))
	assert.Equal(t, attribute.Float64("f", 1.5), toAttribute("f", 1.5))
	assert.Equal(t, attribute.StringSlice("l", []string{"a"}), toAttribute("l", []string{"a"}))
	assert.Equal(t, attribute.String("o", "{1}"), toAttribute("o", struct{ N int }{1}))
}
