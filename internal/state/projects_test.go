package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/state"
)

// projectTree builds a project hierarchy and returns a lookup by path.
func projectTree(t *testing.T, paths ...string) map[string]*domain.Project {
	t.Helper()
	b := domain.NewBuild("demo", "/demo")
	lookup := make(map[string]*domain.Project, len(paths))
	for _, path := range paths {
		lookup[path] = b.CreateProject(path, "/demo/"+path, "/demo/"+path+"/build")
	}
	return lookup
}

func pathsOf(projects []*domain.Project) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Path
	}
	return out
}

func TestFillGaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tree  []string
		input []string
		want  []string
	}{
		{
			name:  "empty input",
			tree:  []string{":"},
			input: nil,
			want:  []string{},
		},
		{
			name:  "root only",
			tree:  []string{":"},
			input: []string{":"},
			want:  []string{":"},
		},
		{
			name:  "missing ancestors inserted root first",
			tree:  []string{":", ":a", ":a:b", ":a:b:c"},
			input: []string{":a:b:c"},
			want:  []string{":", ":a", ":a:b", ":a:b:c"},
		},
		{
			name:  "present ancestors not duplicated",
			tree:  []string{":", ":a", ":a:b"},
			input: []string{":", ":a", ":a:b"},
			want:  []string{":", ":a", ":a:b"},
		},
		{
			name:  "input order preserved across branches",
			tree:  []string{":", ":a", ":a:x", ":b", ":b:y"},
			input: []string{":a:x", ":b:y"},
			want:  []string{":", ":a", ":a:x", ":b", ":b:y"},
		},
		{
			name:  "shared ancestor filled once",
			tree:  []string{":", ":a", ":a:x", ":a:y"},
			input: []string{":a:x", ":a:y"},
			want:  []string{":", ":a", ":a:x", ":a:y"},
		},
		{
			name:  "child before parent keeps first reference position",
			tree:  []string{":", ":a", ":a:b"},
			input: []string{":a:b", ":a"},
			want:  []string{":", ":a", ":a:b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lookup := projectTree(t, tt.tree...)
			input := make([]*domain.Project, len(tt.input))
			for i, path := range tt.input {
				input[i] = lookup[path]
			}

			assert.Equal(t, tt.want, pathsOf(state.FillGaps(input)))
		})
	}
}

func TestFillGaps_Idempotent(t *testing.T) {
	t.Parallel()

	lookup := projectTree(t, ":", ":a", ":a:b", ":c")
	input := []*domain.Project{lookup[":a:b"], lookup[":c"]}

	once := state.FillGaps(input)
	twice := state.FillGaps(once)

	require.Equal(t, pathsOf(once), pathsOf(twice))
	for i := range once {
		assert.Same(t, once[i], twice[i])
	}
}

func TestFillGaps_ParentsBeforeChildren(t *testing.T) {
	t.Parallel()

	lookup := projectTree(t, ":", ":a", ":a:b", ":a:b:c", ":d")
	input := []*domain.Project{lookup[":d"], lookup[":a:b:c"]}

	out := state.FillGaps(input)
	seen := make(map[*domain.Project]bool, len(out))
	for _, p := range out {
		if p.Parent != nil {
			assert.True(t, seen[p.Parent], "project %s appeared before its parent", p.Path)
		}
		seen[p] = true
	}
}

func TestStoredBuilds_FirstSeen(t *testing.T) {
	t.Parallel()

	stored := state.NewStoredBuilds()

	assert.True(t, stored.FirstSeen("/builds/lib"), "first occurrence")
	assert.False(t, stored.FirstSeen("/builds/lib"), "second occurrence")
	assert.True(t, stored.FirstSeen("/builds/other"), "distinct directory")
}
