package state

import (
	"go.trai.ch/keel/internal/codec"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/zerr"
)

// The work graph is flattened into its scheduled node sequence; dependency
// edges are written as indices into that sequence. Index assignment is a
// function of sequence order, which the codec preserves, so the decoded graph
// is isomorphic to the encoded one.

func writeWorkGraph(enc *codec.Encoder, nodes []*domain.WorkNode) error {
	index := make(map[*domain.WorkNode]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	return enc.WriteCollection(len(nodes), func(i int) error {
		node := nodes[i]
		if err := enc.WriteString(node.TaskName.String()); err != nil {
			return err
		}
		if err := enc.WriteString(node.ProjectPath.String()); err != nil {
			return err
		}
		if err := enc.WriteStrings(node.Command); err != nil {
			return err
		}
		if err := enc.WriteStrings(internedToStrings(node.Inputs)); err != nil {
			return err
		}
		return enc.WriteCollection(len(node.Dependencies), func(j int) error {
			depIdx, ok := index[node.Dependencies[j]]
			if !ok {
				return zerr.With(domain.ErrMissingDependency, "task", node.TaskName.String())
			}
			return enc.WriteUint(uint64(depIdx))
		})
	})
}

func readWorkGraph(dec *codec.Decoder) ([]*domain.WorkNode, error) {
	var nodes []*domain.WorkNode
	var depIndices [][]uint64

	err := dec.ReadCollection(func(int) error {
		taskName, err := dec.ReadString()
		if err != nil {
			return err
		}
		projectPath, err := dec.ReadString()
		if err != nil {
			return err
		}
		command, err := dec.ReadStrings()
		if err != nil {
			return err
		}
		inputs, err := dec.ReadStrings()
		if err != nil {
			return err
		}
		var deps []uint64
		err = dec.ReadCollection(func(int) error {
			idx, err := dec.ReadUint()
			if err != nil {
				return err
			}
			deps = append(deps, idx)
			return nil
		})
		if err != nil {
			return err
		}

		nodes = append(nodes, &domain.WorkNode{
			TaskName:    domain.NewInternedString(taskName),
			ProjectPath: domain.NewInternedString(projectPath),
			Command:     command,
			Inputs:      stringsToInterned(inputs),
		})
		depIndices = append(depIndices, deps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Edges can reference nodes later in the sequence, so linking happens
	// only after every node exists.
	for i, node := range nodes {
		for _, idx := range depIndices[i] {
			if idx >= uint64(len(nodes)) {
				return nil, zerr.With(domain.ErrEncoding, "node_ref", idx)
			}
			node.Dependencies = append(node.Dependencies, nodes[idx])
		}
	}
	return nodes, nil
}

func internedToStrings(in []domain.InternedString) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.String()
	}
	return out
}

func stringsToInterned(in []string) []domain.InternedString {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.InternedString, len(in))
	for i, s := range in {
		out[i] = domain.NewInternedString(s)
	}
	return out
}
