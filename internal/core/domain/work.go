package domain

import "go.trai.ch/zerr"

// WorkNode is a unit in the scheduled execution graph. Dependencies point at
// other nodes of the same scheduled sequence and must form a DAG.
type WorkNode struct {
	TaskName    InternedString
	ProjectPath InternedString
	Command     []string
	Inputs      []InternedString

	Dependencies []*WorkNode
}

// ValidateWorkGraph checks the scheduled node sequence for cycles and for
// dependencies that escape the sequence.
func ValidateWorkGraph(nodes []*WorkNode) error {
	const (
		unvisited = iota
		visiting
		visited
	)

	index := make(map[*WorkNode]struct{}, len(nodes))
	for _, n := range nodes {
		index[n] = struct{}{}
	}

	state := make(map[*WorkNode]int, len(nodes))
	var path []*WorkNode

	var visit func(n *WorkNode) error
	visit = func(n *WorkNode) error {
		state[n] = visiting
		path = append(path, n)

		for _, dep := range n.Dependencies {
			if _, ok := index[dep]; !ok {
				return zerr.With(ErrMissingDependency, "dependency", dep.TaskName.String())
			}
			switch state[dep] {
			case visiting:
				return buildCycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		state[n] = visited
		path = path[:len(path)-1]
		return nil
	}

	for _, n := range nodes {
		if state[n] == unvisited {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildCycleError(path []*WorkNode, dep *WorkNode) error {
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	cyclePath := ""
	for i := startIdx; i >= 0 && i < len(path); i++ {
		cyclePath += path[i].TaskName.String() + " -> "
	}
	cyclePath += dep.TaskName.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}
