package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/keel/internal/adapters/telemetry"
)

// These tests mutate the global tracer provider, so no t.Parallel.

func withRestoredProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestNewProviderInstallsGlobalProvider(t *testing.T) {
	withRestoredProvider(t)

	shutdown := telemetry.NewProvider()

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "global provider should be the SDK provider")
	require.NoError(t, shutdown(context.Background()))
}

func TestTracerRecordsThroughInstalledProvider(t *testing.T) {
	withRestoredProvider(t)

	recorder := tracetest.NewSpanRecorder()
	shutdown := telemetry.NewProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { require.NoError(t, shutdown(context.Background())) }()

	tracer := telemetry.NewOTelTracer("keel")
	_, span := tracer.Start(context.Background(), "state.write")
	span.SetAttribute("nodes", 3)
	span.RecordError(errors.New("disk full"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "state.write", ended[0].Name())
	assert.NotEmpty(t, ended[0].Events(), "recorded error should appear as a span event")
}
