package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/depgraph"
	"github.com/patchsplit/patchsplit/internal/model"
)

func TestCheck_CoverageAndDuplication(t *testing.T) {
	changes := []model.Change{
		{ID: "a", Added: 5},
		{ID: "b", Added: 5},
	}
	g := depgraph.New([]string{"a", "b"}, nil)
	v := New(200)

	patches := []model.Patch{
		{ID: 0, Changes: []string{"a"}},
	}
	issues := v.Check(changes, patches, g)
	var kinds []string
	for _, i := range issues {
		kinds = append(kinds, i.Kind)
	}
	assert.Contains(t, kinds, "coverage", "change b missing from every patch should be flagged")
}

func TestCheck_ApplySimulationCatchesOutOfOrderDependency(t *testing.T) {
	changes := []model.Change{
		{ID: "a", Added: 5},
		{ID: "b", Added: 5},
	}
	deps := []model.Dependency{
		{Source: "b", Target: "a", Kind: model.DepDefinesUses, Strength: 0.9},
	}
	g := depgraph.New([]string{"a", "b"}, deps)
	v := New(200)

	// b is placed before a, but b depends on a: this must be flagged.
	patches := []model.Patch{
		{ID: 0, Changes: []string{"b"}},
		{ID: 1, Changes: []string{"a"}},
	}
	issues := v.Check(changes, patches, g)
	found := false
	for _, i := range issues {
		if i.Kind == "apply-simulation" {
			found = true
		}
	}
	assert.True(t, found, "b's unavailable prerequisite a must be flagged")
}

func TestCheck_ApplySimulationPassesWhenOrderedCorrectly(t *testing.T) {
	changes := []model.Change{
		{ID: "a", Added: 5},
		{ID: "b", Added: 5},
	}
	deps := []model.Dependency{
		{Source: "b", Target: "a", Kind: model.DepDefinesUses, Strength: 0.9},
	}
	g := depgraph.New([]string{"a", "b"}, deps)
	v := New(200)

	patches := []model.Patch{
		{ID: 0, Changes: []string{"a"}},
		{ID: 1, Changes: []string{"b"}, DependsOn: []int{0}},
	}
	issues := v.Check(changes, patches, g)
	for _, i := range issues {
		assert.NotEqual(t, "apply-simulation", i.Kind)
	}
}

func TestMetrics_BalanceScorePerfectWhenEqualSizes(t *testing.T) {
	changes := []model.Change{{ID: "a", Added: 100}, {ID: "b", Added: 100}}
	g := depgraph.New([]string{"a", "b"}, nil)
	patches := []model.Patch{
		{ID: 0, Changes: []string{"a"}, TotalLines: 100},
		{ID: 1, Changes: []string{"b"}, TotalLines: 100},
	}
	m := New(200).Metrics(changes, patches, g)
	assert.Equal(t, 1.0, m.BalanceScore)
	assert.Equal(t, 100.0, m.MeanPatchSize)
}

func TestMetrics_MaxChainDepth(t *testing.T) {
	patches := []model.Patch{
		{ID: 0, Changes: []string{"a"}},
		{ID: 1, Changes: []string{"b"}, DependsOn: []int{0}},
		{ID: 2, Changes: []string{"c"}, DependsOn: []int{1}},
	}
	depth := maxChainDepth(patches)
	require.Equal(t, 2, depth)
}

func TestOptimize_SplitsOversizePatch(t *testing.T) {
	patches := []model.Patch{
		{ID: 0, Changes: []string{"a", "b", "c", "d"}, TotalLines: 1000},
	}
	v := New(200)
	out := v.Optimize(patches)
	require.Len(t, out, 2)
	assert.Contains(t, out[1].DependsOn, out[0].ID)
}
