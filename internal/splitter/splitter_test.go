package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/depgraph"
	"github.com/patchsplit/patchsplit/internal/model"
)

func TestSplit_DependentPatchOrderedAfterItsDependency(t *testing.T) {
	// b.go's change depends on a.go's change. The two changes must land in
	// different patches whose final DependsOn/ID ordering respects that:
	// the patch containing b's change must depend on the patch containing
	// a's change, and must carry a strictly larger ID.
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", Kind: model.ChangeAdd, Added: 5},
		{ID: "b.go:hunk_0", File: "b.go", Kind: model.ChangeAdd, Added: 5},
	}
	deps := []model.Dependency{
		{Source: "b.go:hunk_0", Target: "a.go:hunk_0", Kind: model.DepDefinesUses, Strength: 0.8},
	}
	ids := []string{"a.go:hunk_0", "b.go:hunk_0"}
	g := depgraph.New(ids, deps)

	s := New(50, nil)
	patches, warnings := s.Split(changes, nil, nil, g)
	require.Empty(t, warnings)
	require.Len(t, patches, 2)

	byChange := map[string]model.Patch{}
	for _, p := range patches {
		for _, id := range p.Changes {
			byChange[id] = p
		}
	}
	pa := byChange["a.go:hunk_0"]
	pb := byChange["b.go:hunk_0"]

	assert.Less(t, pa.ID, pb.ID, "the dependency's patch must have a smaller id")
	assert.Contains(t, pb.DependsOn, pa.ID, "the dependent patch must declare the dependency")
}

func TestSplit_AllChangesCovered(t *testing.T) {
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", Kind: model.ChangeAdd, Added: 10},
		{ID: "b.go:hunk_0", File: "b.go", Kind: model.ChangeAdd, Added: 10},
		{ID: "c.go:hunk_0", File: "c.go", Kind: model.ChangeModify, Added: 3, Removed: 2},
	}
	ids := []string{"a.go:hunk_0", "b.go:hunk_0", "c.go:hunk_0"}
	g := depgraph.New(ids, nil)

	s := New(200, nil)
	patches, _ := s.Split(changes, nil, nil, g)

	seen := map[string]int{}
	for _, p := range patches {
		for _, id := range p.Changes {
			seen[id]++
		}
	}
	for _, c := range changes {
		assert.Equal(t, 1, seen[c.ID], "change %s must appear in exactly one patch", c.ID)
	}
}

func TestSplit_AtomicGroupStaysTogether(t *testing.T) {
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", Kind: model.ChangeModify, Added: 3, Removed: 3},
		{ID: "b.go:hunk_0", File: "b.go", Kind: model.ChangeModify, Added: 3, Removed: 3},
	}
	deps := []model.Dependency{
		{Source: "a.go:hunk_0", Target: "b.go:hunk_0", Kind: model.DepCallChain, Strength: 1.0},
	}
	ids := []string{"a.go:hunk_0", "b.go:hunk_0"}
	g := depgraph.New(ids, deps)
	atomic := []model.AtomicGroup{{ID: "ag0", Changes: ids, Reason: "mutually required"}}

	s := New(200, nil)
	patches, _ := s.Split(changes, atomic, nil, g)

	require.Len(t, patches, 1)
	assert.ElementsMatch(t, ids, patches[0].Changes)
}
