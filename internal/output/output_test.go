package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/model"
)

func TestWrite_ProducesPatchMetadataSummaryAndScript(t *testing.T) {
	changes := []model.Change{
		{ID: "a.go:hunk_0", File: "a.go", HunkIndex: 0, Kind: model.ChangeAdd, Added: 3, RawHunk: "@@ -0,0 +1,3 @@\n+func A() {}\n"},
		{ID: "b.go:hunk_0", File: "b.go", HunkIndex: 0, Kind: model.ChangeAdd, Added: 2, RawHunk: "@@ -0,0 +1,2 @@\n+func B() {}\n"},
	}
	result := &model.PatchSplitResult{
		Patches: []model.Patch{
			{ID: 0, Name: "add-a", Description: "adds a", Category: "feature", Priority: "high", Changes: []string{"a.go:hunk_0"}, TotalLines: 3},
			{ID: 1, Name: "add-b", Description: "adds b", Category: "feature", Priority: "medium", Changes: []string{"b.go:hunk_0"}, DependsOn: []int{0}, TotalLines: 2},
		},
		MentalModel: "two independent additions",
	}

	dir := t.TempDir()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	written, err := Write(result, changes, Options{Dir: dir, Repository: "myrepo", Timestamp: ts})
	require.NoError(t, err)
	assert.Len(t, written, 5)

	patch0, err := os.ReadFile(filepath.Join(dir, "00_add_a.patch"))
	require.NoError(t, err)
	assert.Contains(t, string(patch0), "func A()")
	assert.Contains(t, string(patch0), "# Category: feature")

	metaFiles, err := filepath.Glob(filepath.Join(dir, "metadata_*.json"))
	require.NoError(t, err)
	require.Len(t, metaFiles, 1)
	metaBytes, err := os.ReadFile(metaFiles[0])
	require.NoError(t, err)
	var meta metadata
	require.NoError(t, json.Unmarshal(metaBytes, &meta))
	require.Len(t, meta.Patches, 2)
	assert.Equal(t, []int{0}, meta.Patches[1].Dependencies)
	assert.Equal(t, "myrepo", meta.Repository)

	summaryFiles, err := filepath.Glob(filepath.Join(dir, "summary_*.md"))
	require.NoError(t, err)
	require.Len(t, summaryFiles, 1)
	summary, err := os.ReadFile(summaryFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(summary), "two independent additions")

	script, err := os.ReadFile(filepath.Join(dir, "apply_patches.sh"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(script), "#!/bin/sh"))
	assert.Contains(t, string(script), "00_add_a.patch")
	assert.Contains(t, string(script), "01_add_b.patch")
	assert.True(t, strings.Index(string(script), "00_add_a.patch") < strings.Index(string(script), "01_add_b.patch"))
}

func TestSafeName_CollapsesSeparatorsAndCase(t *testing.T) {
	assert.Equal(t, "add_the_widget", safeName("Add  the--Widget"))
	assert.Equal(t, "widget", safeName("__Widget__"))
}
