package execution_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.trai.ch/keel/internal/execution"
)

func TestIdentityStore_ComputesOnce(t *testing.T) {
	store := execution.NewIdentityStore()
	var calls atomic.Int32

	out := store.GetOrCompute("id-1", func() execution.Outcome {
		calls.Add(1)
		return execution.Success("result")
	})

	v, err := out.Value()
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if v != "result" {
		t.Errorf("expected %q, got %v", "result", v)
	}

	// The second lookup must replay the cached outcome.
	out = store.GetOrCompute("id-1", func() execution.Outcome {
		calls.Add(1)
		return execution.Success("other")
	})
	if v, _ := out.Value(); v != "result" {
		t.Errorf("expected cached %q, got %v", "result", v)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 computation, got %d", calls.Load())
	}
}

func TestIdentityStore_ConcurrentAtMostOnce(t *testing.T) {
	store := execution.NewIdentityStore()
	var calls atomic.Int32

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]any, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out := store.GetOrCompute("shared", func() execution.Outcome {
				calls.Add(1)
				return execution.Success(42)
			})
			results[i], _ = out.Value()
		}()
	}

	close(start)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly 1 computation, got %d", calls.Load())
	}
	for i, r := range results {
		if r != 42 {
			t.Errorf("worker %d observed %v, want 42", i, r)
		}
	}
}

func TestIdentityStore_FailureReplay(t *testing.T) {
	store := execution.NewIdentityStore()
	sentinel := errors.New("boom")
	var calls atomic.Int32

	for range 3 {
		out := store.GetOrCompute("fails", func() execution.Outcome {
			calls.Add(1)
			return execution.Failure(sentinel)
		})
		if !errors.Is(out.Err(), sentinel) {
			t.Fatalf("expected sentinel failure, got %v", out.Err())
		}
	}

	if calls.Load() != 1 {
		t.Errorf("failed work must not re-execute, got %d computations", calls.Load())
	}
}

func TestIdentityStore_PanicBecomesFailure(t *testing.T) {
	store := execution.NewIdentityStore()

	out := store.GetOrCompute("panics", func() execution.Outcome {
		panic("kaboom")
	})
	if out.Successful() {
		t.Fatal("expected a failure outcome")
	}

	// Waiters joining afterwards observe the same failure instead of hanging.
	replay := store.GetOrCompute("panics", func() execution.Outcome {
		t.Fatal("compute must not run again")
		return execution.Outcome{}
	})
	if replay.Successful() {
		t.Error("expected the cached failure to replay")
	}
}

func TestIdentityStore_GetIfPresent(t *testing.T) {
	store := execution.NewIdentityStore()

	if _, ok := store.GetIfPresent("absent"); ok {
		t.Error("expected miss for unknown identity")
	}

	store.GetOrCompute("present", func() execution.Outcome {
		return execution.Success("v")
	})

	out, ok := store.GetIfPresent("present")
	if !ok {
		t.Fatal("expected hit for completed identity")
	}
	if v, _ := out.Value(); v != "v" {
		t.Errorf("expected %q, got %v", "v", v)
	}
}

func TestIdentityStore_GetIfPresent_InFlight(t *testing.T) {
	store := execution.NewIdentityStore()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		store.GetOrCompute("slow", func() execution.Outcome {
			close(entered)
			<-release
			return execution.Success("done")
		})
	}()

	<-entered
	if _, ok := store.GetIfPresent("slow"); ok {
		t.Error("in-flight computation must not be reported as present")
	}
	close(release)
}

func TestIdentityStore_Size(t *testing.T) {
	store := execution.NewIdentityStore()
	store.GetOrCompute("a", func() execution.Outcome { return execution.Success(1) })
	store.GetOrCompute("b", func() execution.Outcome { return execution.Success(2) })

	if got := store.Size(); got != 2 {
		t.Errorf("expected size 2, got %d", got)
	}
}
