// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/keel/internal/core/domain"
)

// Executor defines the interface for executing scheduled work nodes.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the given work node and returns its output.
	// It returns an error if the execution fails.
	Execute(ctx context.Context, node *domain.WorkNode) (any, error)
}
