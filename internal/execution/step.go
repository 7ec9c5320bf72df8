package execution

import (
	"context"

	"go.trai.ch/keel/internal/core/domain"
)

// UnitOfWork is one schedulable piece of work with a stable identity.
type UnitOfWork interface {
	// Identity returns the value-equality key derived from the work's inputs.
	Identity() domain.Identity

	// Execute performs the work and returns its output.
	Execute(ctx context.Context) (any, error)
}

// DeferredProcessor receives the two continuations of a deferred execution:
// a cached outcome on hit, or a supplier that performs the cache-populating
// computation on miss. The supplier never raises; failures travel inside the
// returned outcome.
type DeferredProcessor interface {
	ProcessCachedOutput(out Outcome) any
	ProcessDeferredOutput(supplier func() Outcome) any
}

// CacheStep deduplicates execution of identical units of work through an
// IdentityStore.
type CacheStep struct{}

// NewCacheStep creates a CacheStep.
func NewCacheStep() *CacheStep {
	return &CacheStep{}
}

// Execute runs the work directly, bypassing the identity cache. Used when
// identity-level caching is not applicable to the caller.
func (s *CacheStep) Execute(ctx context.Context, work UnitOfWork) Outcome {
	return run(ctx, work)
}

// ExecuteDeferred consults the store for the work's identity: a hit hands the
// cached outcome to the processor without re-executing; a miss hands over a
// supplier that executes at most once per identity and stores the outcome,
// success or failure, before releasing concurrent waiters.
func (s *CacheStep) ExecuteDeferred(
	ctx context.Context,
	work UnitOfWork,
	store *IdentityStore,
	processor DeferredProcessor,
) any {
	id := work.Identity()
	if cached, ok := store.GetIfPresent(id); ok {
		return processor.ProcessCachedOutput(cached)
	}
	return processor.ProcessDeferredOutput(func() Outcome {
		return store.GetOrCompute(id, func() Outcome {
			return run(ctx, work)
		})
	})
}

func run(ctx context.Context, work UnitOfWork) Outcome {
	v, err := work.Execute(ctx)
	if err != nil {
		return Failure(err)
	}
	return Success(v)
}
