package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines_SplitsOnNewlinesKeepingTrailingPartial(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitLines("a\nb\nc"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a"}, splitLines("a"))
}

func TestSyntheticUntrackedDiff_RendersWholeFileAddition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	diff := syntheticUntrackedDiff([]string{path})
	assert.Contains(t, diff, "new file mode 100644")
	assert.Contains(t, diff, "+package main")
	assert.Contains(t, diff, "@@ -0,0 +1,1 @@")
}

func TestSyntheticUntrackedDiff_SkipsUnreadableFile(t *testing.T) {
	diff := syntheticUntrackedDiff([]string{filepath.Join(t.TempDir(), "missing.go")})
	assert.Equal(t, "", diff)
}

func TestResolveRepoPath_DefaultsToCurrentDirectory(t *testing.T) {
	oldRepo, oldConfig := repoFlag, configFile
	defer func() { repoFlag, configFile = oldRepo, oldConfig }()
	repoFlag, configFile = "", ""

	path, err := resolveRepoPath()
	require.NoError(t, err)
	assert.Equal(t, ".", path)
}

func TestResolveRepoPath_RepoWithoutConfigIsAnError(t *testing.T) {
	oldRepo, oldConfig := repoFlag, configFile
	defer func() { repoFlag, configFile = oldRepo, oldConfig }()
	repoFlag, configFile = "api", ""

	_, err := resolveRepoPath()
	assert.Error(t, err)
}

func TestResolveRepoPath_ResolvesNamedRepositoryFromConfig(t *testing.T) {
	oldRepo, oldConfig := repoFlag, configFile
	defer func() { repoFlag, configFile = oldRepo, oldConfig }()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "repos.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api: ./api\n"), 0o644))

	repoFlag, configFile = "api", cfgPath
	path, err := resolveRepoPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
}
