package ports

import "context"

// Span represents one traced operation.
type Span interface {
	// End completes the span.
	End()

	// RecordError records an error for the span.
	RecordError(err error)

	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// Tracer is the abstraction for distributed tracing. It decouples the state
// cache and scheduler from the telemetry backend.
//
//go:generate go run go.uber.org/mock/mockgen -source=tracer.go -destination=mocks/mock_tracer.go -package=mocks
type Tracer interface {
	// Start creates a new span under the current span in ctx.
	Start(ctx context.Context, name string) (context.Context, Span)
}
