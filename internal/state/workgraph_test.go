package state

import (
	"bytes"
	"errors"
	"testing"

	"go.trai.ch/keel/internal/codec"
	"go.trai.ch/keel/internal/core/domain"
)

func graphNode(name string, deps ...*domain.WorkNode) *domain.WorkNode {
	return &domain.WorkNode{
		TaskName:     domain.NewInternedString(name),
		ProjectPath:  domain.NewInternedString(":"),
		Dependencies: deps,
	}
}

func TestWorkGraph_ForwardReferences(t *testing.T) {
	// The sequence is free to list a node before its dependency.
	late := graphNode("late")
	early := graphNode("early", late)
	nodes := []*domain.WorkNode{early, late}

	var buf bytes.Buffer
	table := NewCodecTable()
	enc := codec.NewEncoder(&buf, table)
	if err := writeWorkGraph(enc, nodes); err != nil {
		t.Fatalf("writeWorkGraph failed: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	decoded, err := readWorkGraph(codec.NewDecoder(&buf, table))
	if err != nil {
		t.Fatalf("readWorkGraph failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(decoded))
	}
	if len(decoded[0].Dependencies) != 1 || decoded[0].Dependencies[0] != decoded[1] {
		t.Error("forward dependency must link to the later decoded node")
	}
}

func TestWorkGraph_EscapedDependencyFailsWrite(t *testing.T) {
	outside := graphNode("outside")
	inside := graphNode("inside", outside)

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, NewCodecTable())
	err := writeWorkGraph(enc, []*domain.WorkNode{inside})
	if !errors.Is(err, domain.ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
}

func TestWorkGraph_InterningSharesHandles(t *testing.T) {
	a := graphNode("build")
	b := graphNode("test")
	a.ProjectPath = domain.NewInternedString(":app")
	b.ProjectPath = domain.NewInternedString(":app")

	var buf bytes.Buffer
	table := NewCodecTable()
	enc := codec.NewEncoder(&buf, table)
	if err := writeWorkGraph(enc, []*domain.WorkNode{a, b}); err != nil {
		t.Fatalf("writeWorkGraph failed: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	decoded, err := readWorkGraph(codec.NewDecoder(&buf, table))
	if err != nil {
		t.Fatalf("readWorkGraph failed: %v", err)
	}
	if decoded[0].ProjectPath != decoded[1].ProjectPath {
		t.Error("equal project paths must decode to the same interned handle")
	}
}
