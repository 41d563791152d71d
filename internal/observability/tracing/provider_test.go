package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/radiodose/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, noop.TracerProvider{}, tp)
}

func TestSamplingRatioClamped(t *testing.T) {
	assert.Equal(t, 0.0, samplingRatio(-1))
	assert.Equal(t, 1.0, samplingRatio(4))
	assert.Equal(t, 0.25, samplingRatio(0.25))
}

func TestCorrelationProcessorTagsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&correlationSpanProcessor{}),
		sdktrace.WithSpanProcessor(recorder),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := correlation.ContextWithCorrelationID(context.Background(), "01J0CID")
	ctx = correlation.ContextWithTerminalID(ctx, "term-7")
	_, span := tp.Tracer("test").Start(ctx, "ledger.record")
	RecordError(span, errors.New("source busy"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.String("correlation_id", "01J0CID"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("terminal_id", "term-7"))
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
