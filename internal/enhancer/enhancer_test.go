package enhancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/model"
)

func TestExtractJSON_StripsMarkdownFence(t *testing.T) {
	var out []string
	err := extractJSON("```json\n[\"a\", \"b\"]\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestExtractJSON_PlainJSONWithoutFence(t *testing.T) {
	var out []string
	err := extractJSON(`["x"]`, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out)
}

func TestExtractJSON_InvalidJSONErrors(t *testing.T) {
	var out []string
	err := extractJSON("not json at all", &out)
	assert.Error(t, err)
}

func TestKnownIDs(t *testing.T) {
	changes := []model.Change{{ID: "a"}, {ID: "b"}}
	known := knownIDs(changes)
	assert.True(t, known["a"])
	assert.False(t, known["z"])
}

func TestBuildDependencyPrompt_ListsChangesAndExistingDeps(t *testing.T) {
	changes := []model.Change{{ID: "a.go:hunk_0", File: "a.go", Kind: model.ChangeAdd}}
	deps := []model.Dependency{{Source: "a.go:hunk_0", Target: "b.go:hunk_0", Kind: model.DepImport}}
	prompt := buildDependencyPrompt(changes, deps)
	assert.Contains(t, prompt, "a.go:hunk_0")
	assert.Contains(t, prompt, "a.go:hunk_0 -> b.go:hunk_0")
}

func TestBuildValidationPrompt_ListsEachPatch(t *testing.T) {
	patches := []model.Patch{{Name: "add-widget", Changes: []string{"a.go:hunk_0"}}}
	prompt := buildValidationPrompt(patches)
	assert.Contains(t, prompt, "add-widget")
	assert.Contains(t, prompt, "a.go:hunk_0")
}
