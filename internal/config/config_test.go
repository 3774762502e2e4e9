package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/perr"
)

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repos.yaml")
	writeFile(t, path, "api: ./api\nweb: ./web\n")

	set, err := Load(path)
	require.NoError(t, err)
	p, ok := set.Resolve("api")
	assert.True(t, ok)
	assert.True(t, filepath.IsAbs(p))

	_, ok = set.Resolve("missing")
	assert.False(t, ok)
}

func TestLoad_JSONSniffedFromBraceContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repos.json")
	writeFile(t, path, `{"api": "./api"}`)

	set, err := Load(path)
	require.NoError(t, err)
	_, ok := set.Resolve("api")
	assert.True(t, ok)
}

func TestLoad_MissingFileIsIOError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, perr.New(perr.KindIO, "", nil)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
