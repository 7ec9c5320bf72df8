package state

import (
	"slices"

	"go.trai.ch/keel/internal/core/domain"
)

// FillGaps returns the input projects completed with every missing ancestor,
// so that the output can be replayed in order with each parent materialized
// before its children. Each project appears exactly once; relative order of
// the input is preserved, with missing ancestors inserted root-first ahead of
// their first descendant.
func FillGaps(projects []*domain.Project) []*domain.Project {
	out := make([]*domain.Project, 0, len(projects))
	present := make(map[*domain.Project]struct{}, len(projects))

	index := 0
	for _, project := range projects {
		added := 0
		// Walk up to the nearest ancestor already present; inserting each
		// missing ancestor at the same index yields root-to-parent order.
		for parent := project.Parent; parent != nil; parent = parent.Parent {
			if _, ok := present[parent]; ok {
				break
			}
			out = slices.Insert(out, index, parent)
			present[parent] = struct{}{}
			added++
		}
		if _, ok := present[project]; !ok {
			out = append(out, project)
			present[project] = struct{}{}
			added++
		}
		index += added
	}
	return out
}
