package semgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/depanalyze"
	"github.com/patchsplit/patchsplit/internal/model"
)

func TestGroup_FileProximity(t *testing.T) {
	changes := []model.Change{
		{ID: "f.go:hunk_0", File: "f.go", HunkIndex: 0, StartLine: 1, EndLine: 5, Kind: model.ChangeModify, Added: 2, Removed: 1},
		{ID: "f.go:hunk_1", File: "f.go", HunkIndex: 1, StartLine: 6, EndLine: 10, Kind: model.ChangeModify, Added: 2, Removed: 1},
	}
	groups := New().Group(changes, nil)
	require.NotEmpty(t, groups)
	found := false
	for _, g := range groups {
		if g.Kind == "file_proximity" {
			found = true
			assert.ElementsMatch(t, []string{"f.go:hunk_0", "f.go:hunk_1"}, g.Changes)
			assert.GreaterOrEqual(t, g.Cohesion, 0.5)
		}
	}
	assert.True(t, found)
}

func TestGroup_Rename(t *testing.T) {
	changes := make([]model.Change, 3)
	var extractions []depanalyze.Extraction
	for i := 0; i < 3; i++ {
		c := model.Change{ID: idOf(i), File: "a.go", StartLine: i * 1000, EndLine: i*1000 + 1, Kind: model.ChangeModify, Added: 1, Removed: 1}
		changes[i] = c
		extractions = append(extractions, depanalyze.Extraction{
			Change: c,
			Usages: []model.Symbol{{Name: "Widget", Kind: model.SymbolType, Role: model.RoleUsage}},
		})
	}
	groups := New().Group(changes, extractions)
	var renameGroup *model.SemanticGroup
	for i := range groups {
		if groups[i].Kind == "rename" {
			renameGroup = &groups[i]
		}
	}
	require.NotNil(t, renameGroup)
	assert.Equal(t, 0.95, renameGroup.Cohesion)
	assert.Len(t, renameGroup.Changes, 3)
}

func idOf(i int) string {
	names := []string{"a.go:hunk_0", "a.go:hunk_1", "a.go:hunk_2"}
	return names[i]
}

func TestJaccardIDs(t *testing.T) {
	assert.Equal(t, 1.0, JaccardIDs([]string{"a", "b"}, []string{"a", "b"}))
	assert.Equal(t, 0.0, JaccardIDs([]string{"a"}, []string{"b"}))
	assert.InDelta(t, 1.0/3.0, JaccardIDs([]string{"a", "b"}, []string{"b", "c"}), 0.0001)
}

func TestGroup_DuplicateEditAcrossFiles(t *testing.T) {
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", Kind: model.ChangeModify, Added: 1, Removed: 1,
			RawHunk: "@@ -1,1 +1,1 @@\n-import \"old/pkg\"\n+import \"new/pkg\""},
		{ID: "b.go:hunk_0", File: "b.go", Kind: model.ChangeModify, Added: 1, Removed: 1,
			RawHunk: "@@ -1,1 +1,1 @@\n-import \"old/pkg\"\n+import \"new/pkg\""},
		{ID: "c.go:hunk_0", File: "c.go", Kind: model.ChangeModify, Added: 20, Removed: 0,
			RawHunk: "@@ -1,0 +1,20 @@\n+func Unrelated() {}"},
	}
	groups := New().Group(changes, nil)
	var dup *model.SemanticGroup
	for i := range groups {
		if groups[i].Kind == "duplicate_edit" {
			dup = &groups[i]
		}
	}
	require.NotNil(t, dup)
	assert.ElementsMatch(t, []string{"a.go:hunk_0", "b.go:hunk_0"}, dup.Changes)
	assert.GreaterOrEqual(t, dup.Cohesion, 0.6)
}

func TestGroup_DedupDropsHighOverlapCandidate(t *testing.T) {
	// Two changes sharing a file (proximity, cohesion 0.99) and also sharing
	// a symbol (co-occurrence, cohesion 0.7) over the same two ids: the
	// lower-cohesion duplicate coverage should be dropped, not the
	// higher-cohesion one.
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", StartLine: 1, EndLine: 2, Kind: model.ChangeModify, Added: 1, Removed: 1},
		{ID: "a.go:hunk_1", File: "a.go", StartLine: 3, EndLine: 4, Kind: model.ChangeModify, Added: 1, Removed: 1},
	}
	extractions := []depanalyze.Extraction{
		{Change: changes[0], Usages: []model.Symbol{{Name: "Widget", Kind: model.SymbolType, Role: model.RoleUsage}}},
		{Change: changes[1], Usages: []model.Symbol{{Name: "Widget", Kind: model.SymbolType, Role: model.RoleUsage}}},
	}
	groups := New().Group(changes, extractions)
	total := map[string]bool{}
	for _, g := range groups {
		for _, id := range g.Changes {
			total[id] = true
		}
	}
	assert.Len(t, total, 2)
	require.Len(t, groups, 1)
	assert.Equal(t, "file_proximity", groups[0].Kind)
}
