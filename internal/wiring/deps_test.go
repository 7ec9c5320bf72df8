package wiring_test

import (
	"testing"

	"github.com/grindlemire/graft"
)

// TestNodeDependencies would verify that every graft node declares exactly
// the dependencies it resolves.
func TestNodeDependencies(t *testing.T) {
	// graft's static analysis derives the expected node ID from the package
	// of the type passed to Dep[T]. keel resolves ports.Executor,
	// ports.Logger and friends from one shared ports package, so the
	// analysis expects a single "ports" node and reports every adapter as
	// mismatched.
	t.Skip("graft.AssertDepsValid cannot resolve multiple nodes behind the shared ports package")
	graft.AssertDepsValid(t, "../../internal")
}
