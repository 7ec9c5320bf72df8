package execution

import (
	"fmt"
	"sync"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/zerr"
)

// IdentityStore maps work identities to execution outcomes. It guarantees
// at-most-one computation in flight per identity: concurrent callers for the
// same identity join the in-flight computation and observe its outcome.
// Outcomes, including failures, are cached for the lifetime of the store.
type IdentityStore struct {
	mu    sync.Mutex
	cells map[domain.Identity]*cell
}

// cell is a single-assignment promise for one identity. done is closed once
// outcome is set; the outcome field is never written again afterwards.
type cell struct {
	done    chan struct{}
	outcome Outcome
}

// NewIdentityStore creates an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{cells: make(map[domain.Identity]*cell)}
}

// GetIfPresent returns the completed outcome cached for id, if any.
// In-flight computations are not reported; callers that want to join them
// use GetOrCompute.
func (s *IdentityStore) GetIfPresent(id domain.Identity) (Outcome, bool) {
	s.mu.Lock()
	c, ok := s.cells[id]
	s.mu.Unlock()
	if !ok {
		return Outcome{}, false
	}
	select {
	case <-c.done:
		return c.outcome, true
	default:
		return Outcome{}, false
	}
}

// GetOrCompute returns the outcome cached for id, computing it with compute
// on first access. Under concurrent first access exactly one caller runs
// compute; the rest block until the outcome is available. A panic inside
// compute is captured as a failure outcome so waiters are never stranded.
func (s *IdentityStore) GetOrCompute(id domain.Identity, compute func() Outcome) Outcome {
	s.mu.Lock()
	if c, ok := s.cells[id]; ok {
		s.mu.Unlock()
		<-c.done
		return c.outcome
	}
	c := &cell{done: make(chan struct{})}
	s.cells[id] = c
	s.mu.Unlock()

	c.outcome = protect(compute)
	close(c.done)
	return c.outcome
}

// Size returns the number of identities with a reserved or completed cell.
func (s *IdentityStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}

// protect runs compute, converting a panic into a failure outcome.
func protect(compute func() Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure(zerr.With(zerr.New("work computation panicked"), "panic", fmt.Sprintf("%v", r)))
		}
	}()
	return compute()
}
