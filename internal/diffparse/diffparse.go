// Package diffparse turns a unified diff into an ordered list of
// model.Change records, one per hunk, per the design spec's DiffParser
// contract. The primary path is built on github.com/bluekeyes/go-gitdiff,
// the same library the teacher repository uses to parse patch files into
// gitdiff.File/gitdiff.TextFragment. When go-gitdiff fails on the document,
// the whole document is parsed by a tolerant line scanner adapted from the teacher's
// hand-rolled ExtractHunksFromPatch, which recognizes "diff --git" and "@@"
// markers and best-effort-extracts line ranges without panicking.
package diffparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/patchsplit/patchsplit/internal/model"
	"github.com/patchsplit/patchsplit/internal/plog"
)

// Parser turns unified diff text into model.Change records.
type Parser struct {
	log *plog.Logger
}

// New creates a Parser. A nil logger falls back to a quiet error-level logger.
func New(log *plog.Logger) *Parser {
	if log == nil {
		log = plog.New(plog.ErrorLevel)
	}
	return &Parser{log: log}
}

// Parse parses a unified diff string into an ordered list of Changes, one
// per hunk. If go-gitdiff rejects the document, the tolerant scanner parses
// all of it instead; that fallback, and any hunk that cannot be rendered
// (skipped), are reported in the returned warnings rather than aborting.
func (p *Parser) Parse(diffText string) ([]model.Change, []string) {
	var warnings []string

	files, _, err := gitdiff.Parse(strings.NewReader(diffText))
	if err != nil {
		// The whole document failed to parse with go-gitdiff (e.g. a
		// non-git-style unified diff). Fall back entirely to the tolerant
		// scanner rather than losing the input.
		p.log.Debug("go-gitdiff parse failed, falling back to tolerant scanner: %v", err)
		warnings = append(warnings, fmt.Sprintf("go-gitdiff parse failed, used fallback scanner: %v", err))
		return fallbackParse(diffText), warnings
	}

	var changes []model.Change
	for _, f := range files {
		fc, w := changesForFile(f)
		changes = append(changes, fc...)
		warnings = append(warnings, w...)
	}
	return changes, warnings
}

// targetPath returns the canonical path for a gitdiff.File: the target side
// unless the target is /dev/null (a deletion), in which case the source
// path is used.
func targetPath(f *gitdiff.File) string {
	if f.IsDelete || f.NewName == "" {
		return f.OldName
	}
	return f.NewName
}

func changesForFile(f *gitdiff.File) ([]model.Change, []string) {
	path := targetPath(f)
	lang := languageForPath(path)
	var changes []model.Change
	var warnings []string

	if f.IsBinary {
		// Binary hunks carry no textual content to extract symbols from, but
		// still occupy a hunk slot so hunk indices stay contiguous.
		changes = append(changes, model.Change{
			ID:        fmt.Sprintf("%s:hunk_0", path),
			File:      path,
			HunkIndex: 0,
			Kind:      binaryChangeKind(f),
			Language:  lang,
			RawHunk:   fmt.Sprintf("diff --git a/%s b/%s\nBinary files differ\n", f.OldName, f.NewName),
		})
		return changes, warnings
	}

	for i, frag := range f.TextFragments {
		raw, err := renderFragment(f, frag)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to render hunk %d of %s: %v", i, path, err))
			continue
		}
		added, removed := countLines(frag)
		kind := model.ClassifyChangeKind(added, removed)
		changes = append(changes, model.Change{
			ID:        fmt.Sprintf("%s:hunk_%d", path, i),
			File:      path,
			HunkIndex: i,
			Kind:      kind,
			Language:  lang,
			StartLine: int(frag.NewPosition),
			EndLine:   int(frag.NewPosition) + int(frag.NewLines),
			RawHunk:   raw,
			Added:     added,
			Removed:   removed,
		})
	}
	return changes, warnings
}

func binaryChangeKind(f *gitdiff.File) model.ChangeKind {
	switch {
	case f.IsNew:
		return model.ChangeAdd
	case f.IsDelete:
		return model.ChangeDelete
	default:
		return model.ChangeModify
	}
}

func countLines(frag *gitdiff.TextFragment) (added, removed int) {
	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpAdd:
			added++
		case gitdiff.OpDelete:
			removed++
		}
	}
	return added, removed
}

// renderFragment reconstructs the verbatim hunk text (file header + @@
// header + body) for a single fragment, preserving a trailing newline on
// every line per the spec's Change contract.
func renderFragment(f *gitdiff.File, frag *gitdiff.TextFragment) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", f.OldName, f.NewName)
	if f.IsNew {
		fmt.Fprintf(&b, "new file mode %o\n", f.NewMode)
	}
	if f.IsDelete {
		fmt.Fprintf(&b, "deleted file mode %o\n", f.OldMode)
	}
	if f.IsRename {
		fmt.Fprintf(&b, "rename from %s\nrename to %s\n", f.OldName, f.NewName)
	}
	fmt.Fprintf(&b, "--- %s\n", oldNameOrDevNull(f))
	fmt.Fprintf(&b, "+++ %s\n", newNameOrDevNull(f))
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)
	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpContext:
			b.WriteString(" " + line.Line)
		case gitdiff.OpDelete:
			b.WriteString("-" + line.Line)
		case gitdiff.OpAdd:
			b.WriteString("+" + line.Line)
		}
		if !strings.HasSuffix(line.Line, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func oldNameOrDevNull(f *gitdiff.File) string {
	if f.IsNew {
		return "/dev/null"
	}
	return "a/" + f.OldName
}

func newNameOrDevNull(f *gitdiff.File) string {
	if f.IsDelete {
		return "/dev/null"
	}
	return "b/" + f.NewName
}

func languageForPath(path string) model.Language {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return model.LangUnknown
	}
	return model.LanguageForExtension(path[idx:])
}

// --- fallback scanner ---

// fallbackParse is a conservative, panic-free scanner used when go-gitdiff
// cannot parse the document at all. It recognizes "diff --git" and "@@"
// markers and extracts line ranges on a best-effort basis, per the spec's
// "tolerant scanner" contract.
func fallbackParse(diffText string) []model.Change {
	lines := strings.Split(diffText, "\n")
	var changes []model.Change

	var curFile string
	var curLang model.Language
	hunkIdx := map[string]int{}

	var curHeader string
	var curStart int
	var curBody []string
	var fileHeaderLines []string

	flush := func() {
		if curHeader == "" || curFile == "" {
			return
		}
		idx := hunkIdx[curFile]
		hunkIdx[curFile] = idx + 1
		added, removed := 0, 0
		for _, l := range curBody {
			if strings.HasPrefix(l, "+") && !strings.HasPrefix(l, "+++") {
				added++
			} else if strings.HasPrefix(l, "-") && !strings.HasPrefix(l, "---") {
				removed++
			}
		}
		var raw strings.Builder
		for _, l := range fileHeaderLines {
			raw.WriteString(l)
			raw.WriteString("\n")
		}
		raw.WriteString(curHeader)
		raw.WriteString("\n")
		for _, l := range curBody {
			raw.WriteString(l)
			raw.WriteString("\n")
		}
		changes = append(changes, model.Change{
			ID:        fmt.Sprintf("%s:hunk_%d", curFile, idx),
			File:      curFile,
			HunkIndex: idx,
			Kind:      model.ClassifyChangeKind(added, removed),
			Language:  curLang,
			StartLine: curStart,
			RawHunk:   raw.String(),
			Added:     added,
			Removed:   removed,
		})
		curHeader = ""
		curBody = nil
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			flush()
			fileHeaderLines = []string{line}
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				curFile = strings.TrimPrefix(parts[3], "b/")
			} else {
				curFile = ""
			}
			curLang = languageForPath(curFile)
		case strings.HasPrefix(line, "@@"):
			flush()
			curHeader = line
			curStart = parseHunkStart(line)
		case curHeader != "":
			curBody = append(curBody, line)
		case curFile != "" && (strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "index ")):
			fileHeaderLines = append(fileHeaderLines, line)
		}
	}
	flush()
	return changes
}

// parseHunkStart best-effort extracts the target-file start line from an
// "@@ -s,l +s,l @@" header, returning 0 if it cannot be parsed.
func parseHunkStart(header string) int {
	idx := strings.Index(header, "+")
	if idx < 0 {
		return 0
	}
	rest := header[idx+1:]
	end := strings.IndexAny(rest, ", @")
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}
