package telemetry

import (
	"context"

	"go.trai.ch/keel/internal/core/ports"
)

var _ ports.Tracer = (*NoopTracer)(nil)

// NoopTracer discards all tracing. Used when telemetry is disabled.
type NoopTracer struct{}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// Start returns the context unchanged and a span that does nothing.
func (t *NoopTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                     {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) SetAttribute(string, any) {}
