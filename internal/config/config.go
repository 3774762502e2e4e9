// Package config loads the repositories configuration file the CLI's
// `--repo` flag resolves names against: a name -> absolute path map, read
// as YAML by default and as JSON when the file content sniffs as JSON.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/patchsplit/patchsplit/internal/perr"
)

// RepositorySet maps a short repository name to its absolute path.
type RepositorySet map[string]string

// Load reads a repositories config file from path. YAML is the default
// format; if the trimmed content begins with '{' it is parsed as JSON
// instead, so a hand-authored JSON file works without an extra flag.
func Load(path string) (RepositorySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.NewIOError("failed to read repositories config "+path, err)
	}

	var raw map[string]string
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, perr.NewInputError("failed to parse repositories config "+path+" as JSON", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, perr.NewInputError("failed to parse repositories config "+path+" as YAML", err)
		}
	}

	set := make(RepositorySet, len(raw))
	for name, p := range raw {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		set[name] = abs
	}
	return set, nil
}

// Resolve looks up a repository name, returning its configured path and
// true, or "", false if it is not present.
func (r RepositorySet) Resolve(name string) (string, bool) {
	p, ok := r[name]
	return p, ok
}
