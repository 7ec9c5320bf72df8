package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/keel/internal/core/ports"
)

const NodeID graft.ID = "adapter.tracer"

// EnvTrace enables span recording when set. The SDK provider itself is
// installed at process startup so spans started here are recorded.
const EnvTrace = "KEEL_TRACE"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Tracer, error) {
			if os.Getenv(EnvTrace) == "" {
				return NewNoopTracer(), nil
			}
			return NewOTelTracer("keel"), nil
		},
	})
}
