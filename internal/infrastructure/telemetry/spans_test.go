package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestStartSpan(t *testing.T) {
	t.Run("records name and attributes", func(t *testing.T) {
		recorder := setupRecorder(t)

		id := uuid.New()
		_, span := StartSpan(context.Background(), "ledger.reserve",
			WithAttribute("product_id", id),
			WithAttribute("quantity", 5),
		)
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "ledger.reserve", spans[0].Name())
		attrs := spans[0].Attributes()
		assert.Contains(t, attrs, attribute.String("product_id", id.String()))
		assert.Contains(t, attrs, attribute.Int("quantity", 5))
	})

	t.Run("service span naming", func(t *testing.T) {
		recorder := setupRecorder(t)

		_, span := StartServiceSpan(context.Background(), "ledger", "fulfill")
		span.End()

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "ledger.fulfill", spans[0].Name())
	})
}

func TestRecordError(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "ledger.reverse")
	RecordError(span, assert.AnError)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NotNil(t, tp.Tracer("test"))
}
