package statefile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
)

const NodeID graft.ID = "adapter.state_store"

func init() {
	graft.Register(graft.Node[ports.StateStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.StateStore, error) {
			return NewStore(domain.DefaultStatePath()), nil
		},
	})
}
