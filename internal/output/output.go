// Package output serializes a PatchSplitResult to disk: one NN_<name>.patch
// file per patch with a descriptive header, a metadata_<ts>.json manifest, a
// summary_<ts>.md human summary, and an executable apply_patches.sh that
// applies every patch in order via the host VCS tool, aborting on first
// failure.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patchsplit/patchsplit/internal/model"
	"github.com/patchsplit/patchsplit/internal/perr"
)

// Options controls where and how a result is written.
type Options struct {
	Dir        string
	Repository string
	Timestamp  time.Time
}

// Write serializes result to opts.Dir, creating it if necessary, and returns
// the list of file paths written.
func Write(result *model.PatchSplitResult, changes []model.Change, opts Options) ([]string, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, perr.NewIOError("failed to create output directory "+opts.Dir, err)
	}

	byID := make(map[string]model.Change, len(changes))
	for _, c := range changes {
		byID[c.ID] = c
	}

	var written []string
	filenames := make(map[int]string, len(result.Patches))

	for _, p := range result.Patches {
		name := patchFilename(p)
		filenames[p.ID] = name
		full := filepath.Join(opts.Dir, name)
		text := renderPatchFile(p, byID, opts.Timestamp)
		if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
			return nil, perr.NewIOError("failed to write patch file "+full, err)
		}
		written = append(written, full)
	}

	ts := opts.Timestamp.Format("20060102_150405")

	metaPath := filepath.Join(opts.Dir, "metadata_"+ts+".json")
	meta := buildMetadata(result, byID, filenames, opts)
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, perr.NewIOError("failed to marshal metadata", err)
	}
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return nil, perr.NewIOError("failed to write metadata file", err)
	}
	written = append(written, metaPath)

	summaryPath := filepath.Join(opts.Dir, "summary_"+ts+".md")
	if err := os.WriteFile(summaryPath, []byte(renderSummary(result, opts)), 0o644); err != nil {
		return nil, perr.NewIOError("failed to write summary file", err)
	}
	written = append(written, summaryPath)

	scriptPath := filepath.Join(opts.Dir, "apply_patches.sh")
	if err := os.WriteFile(scriptPath, []byte(renderApplyScript(result, filenames)), 0o755); err != nil {
		return nil, perr.NewIOError("failed to write apply script", err)
	}
	written = append(written, scriptPath)

	return written, nil
}

func patchFilename(p model.Patch) string {
	return fmt.Sprintf("%02d_%s.patch", p.ID, safeName(p.Name))
}

func safeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// renderPatchFile builds the header comment block plus the concatenated
// per-file diff --git blocks, intra-patch ordered so definition files
// precede usage files.
func renderPatchFile(p model.Patch, byID map[string]model.Change, ts time.Time) string {
	files := orderedFiles(p, byID)

	var b strings.Builder
	b.WriteString("# " + p.Name + "\n")
	b.WriteString("# Category: " + p.Category + "\n")
	b.WriteString("# Priority: " + p.Priority + "\n")
	b.WriteString("# Generated: " + ts.Format(time.RFC3339) + "\n")
	b.WriteString("# Files: " + strings.Join(files, ", ") + "\n")
	b.WriteString("# Description: " + p.Description + "\n")

	byFile := map[string][]model.Change{}
	for _, id := range p.Changes {
		c := byID[id]
		byFile[c.File] = append(byFile[c.File], c)
	}
	for _, f := range files {
		fc := byFile[f]
		sort.Slice(fc, func(i, j int) bool { return fc[i].HunkIndex < fc[j].HunkIndex })
		for _, c := range fc {
			b.WriteString(c.RawHunk)
			if !strings.HasSuffix(c.RawHunk, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// orderedFiles sorts the patch's files so that files containing any
// definition come before files containing none, alphabetically within each
// group. No per-file dependency graph is built, so the order among
// definition files does not follow which of them uses which.
func orderedFiles(p model.Patch, byID map[string]model.Change) []string {
	fileSet := map[string]bool{}
	for _, id := range p.Changes {
		fileSet[byID[id].File] = true
	}
	var files []string
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	defFiles := map[string]bool{}
	for _, id := range p.Changes {
		c := byID[id]
		for _, s := range c.Symbols {
			if s.Role == model.RoleDefinition {
				defFiles[c.File] = true
			}
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		di, dj := defFiles[files[i]], defFiles[files[j]]
		if di != dj {
			return di
		}
		return files[i] < files[j]
	})
	return files
}

type patchMeta struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Priority     string            `json:"priority"`
	Files        []string          `json:"files"`
	Dependencies []int             `json:"dependencies"`
	Filename     string            `json:"filename"`
	Annotations  map[string]string `json:"annotations,omitempty"`
}

type metadata struct {
	GeneratedAt  string      `json:"generated_at"`
	TotalPatches int         `json:"total_patches"`
	GoalSummary  string      `json:"goal_summary,omitempty"`
	Repository   string      `json:"repository,omitempty"`
	Patches      []patchMeta `json:"patches"`
	MentalModel  string      `json:"mental_model,omitempty"`
}

func buildMetadata(result *model.PatchSplitResult, byID map[string]model.Change, filenames map[int]string, opts Options) metadata {
	m := metadata{
		GeneratedAt:  opts.Timestamp.Format(time.RFC3339),
		TotalPatches: len(result.Patches),
		Repository:   opts.Repository,
		MentalModel:  result.MentalModel,
	}
	for _, p := range result.Patches {
		m.Patches = append(m.Patches, patchMeta{
			ID: p.ID, Name: p.Name, Description: p.Description, Category: p.Category,
			Priority: p.Priority, Files: orderedFiles(p, byID), Dependencies: p.DependsOn,
			Filename: filenames[p.ID], Annotations: p.Annotations,
		})
	}
	return m
}

func renderSummary(result *model.PatchSplitResult, opts Options) string {
	var b strings.Builder
	b.WriteString("# Patch split summary\n\n")
	if result.MentalModel != "" {
		b.WriteString("## Mental model\n\n" + result.MentalModel + "\n\n")
	}
	b.WriteString("Generated " + opts.Timestamp.Format(time.RFC3339) + ", " + strconv.Itoa(len(result.Patches)) + " patches.\n\n")

	byCategory := map[string][]model.Patch{}
	for _, p := range result.Patches {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	var categories []string
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		b.WriteString("## " + cat + "\n\n")
		for _, p := range byCategory[cat] {
			b.WriteString(fmt.Sprintf("- **%d_%s**: %s (%d lines)\n", p.ID, p.Name, p.Description, p.TotalLines))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommended application order\n\n")
	ordered := append([]model.Patch(nil), result.Patches...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, p := range ordered {
		b.WriteString(fmt.Sprintf("%d. %s\n", p.ID, p.Name))
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range result.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func renderApplyScript(result *model.PatchSplitResult, filenames map[int]string) string {
	ordered := append([]model.Patch(nil), result.Patches...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -e\n\n")
	b.WriteString("# Applies each patch in dependency order, aborting on first failure.\n")
	for _, p := range ordered {
		name := filenames[p.ID]
		b.WriteString("echo 'Applying " + name + "'\n")
		b.WriteString("git apply " + shellQuote(path.Join(".", name)) + "\n")
	}
	return b.String()
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
