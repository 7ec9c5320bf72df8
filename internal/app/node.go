package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/keel/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/keel/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/keel/internal/adapters/statefile" //nolint:depguard // Wired in app layer
	"go.trai.ch/keel/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/keel/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/keel/internal/engine/scheduler"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			statefile.NodeID,
			scheduler.NodeID,
			watcher.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.StateStore](ctx)
			if err != nil {
				return nil, err
			}

			sched, err := graft.Dep[*scheduler.Scheduler](ctx)
			if err != nil {
				return nil, err
			}

			watch, err := graft.Dep[ports.Watcher](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return New(loader, store, sched, watch, log, tracer), nil
		},
	})
}
