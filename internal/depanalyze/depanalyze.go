// Package depanalyze infers typed, weighted Dependency edges between
// Changes, implementing the qualified-index, two-phase DependencyAnalyzer
// variant that the design spec's Open Questions section directs
// implementers to prefer over the simpler same-name variant: it builds a
// qualified symbol index and a package index, then resolves each usage
// against them, which avoids the over-merging that a same-name-only match
// produces on common identifiers.
package depanalyze

import (
	"path"
	"strings"

	"github.com/patchsplit/patchsplit/internal/langparse"
	"github.com/patchsplit/patchsplit/internal/model"
)

// stdlibAllowlist lists top-level import paths / hosts treated as stdlib or
// purely external, per language, so that import edges for them are dropped
// entirely (they never resolve to another Change in this diff and single-
// segment stdlib names like "fmt" or "os" would otherwise produce noisy
// false edges against common identifiers such as "error" or "result").
var stdlibAllowlist = map[model.Language]map[string]bool{
	model.LangGo: {
		"fmt": true, "os": true, "io": true, "strings": true, "strconv": true,
		"errors": true, "context": true, "time": true, "sync": true, "bytes": true,
		"sort": true, "net": true, "encoding": true, "regexp": true, "path": true,
		"math": true, "reflect": true, "runtime": true, "testing": true, "log": true,
	},
	model.LangPython: {
		"os": true, "sys": true, "re": true, "json": true, "typing": true,
		"collections": true, "itertools": true, "functools": true, "abc": true,
		"dataclasses": true, "logging": true, "unittest": true, "pathlib": true,
	},
	model.LangJavaScript: {"react": true, "lodash": true, "express": true},
	model.LangTypeScript: {"react": true, "lodash": true, "express": true},
	model.LangJava:       {"java": true, "javax": true},
	model.LangRust:       {"std": true, "core": true, "alloc": true},
	model.LangC:          {"stdio": true, "stdlib": true, "string": true},
	model.LangCpp:        {"iostream": true, "vector": true, "string": true, "memory": true},
}

// externalHostMarkers flags import paths that look like they resolve to a
// third-party package registry rather than anything defined in this diff
// (a URL-like host segment for Go, a package-manager-style dotted path for
// others). These are dropped the same way stdlib paths are.
var externalHostMarkers = []string{".com/", ".org/", ".io/", ".dev/"}

func classifyImport(lang model.Language, importPath string) (stdlib, external bool) {
	top := topLevelSegment(lang, importPath)
	if stdlibAllowlist[lang][top] {
		return true, false
	}
	for _, marker := range externalHostMarkers {
		if strings.Contains(importPath, marker) {
			return false, true
		}
	}
	return false, false
}

func topLevelSegment(lang model.Language, importPath string) string {
	sep := "/"
	if lang == model.LangPython {
		sep = "."
	}
	if lang == model.LangRust {
		sep = "::"
	}
	parts := strings.Split(importPath, sep)
	return parts[0]
}

// Extraction bundles a Change's per-hunk extraction results.
type Extraction struct {
	Change  model.Change
	Defs    []model.Symbol
	Usages  []model.Symbol
	Imports model.ImportMap
}

// Analyzer builds dependency edges from a set of Changes.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer { return &Analyzer{} }

// Extract runs LanguageParser over every Change's raw hunk text and returns
// the per-change extraction results used by both Analyze and any caller
// that wants definitions/usages directly (e.g. the semantic grouper).
func (a *Analyzer) Extract(changes []model.Change) []Extraction {
	out := make([]Extraction, 0, len(changes))
	for _, c := range changes {
		text := addedLinesText(c.RawHunk)
		ext := langparse.For(c.Language).ExtractAll(text, c.File, c.StartLine)
		out = append(out, Extraction{Change: c, Defs: ext.Definitions, Usages: ext.Usages, Imports: ext.Imports})
	}
	return out
}

// addedLinesText strips the diff markers and keeps only the text of added
// ("+") lines, which is the only material the spec allows symbols to be
// extracted from.
func addedLinesText(rawHunk string) string {
	var b strings.Builder
	for _, line := range strings.Split(rawHunk, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "diff --git") ||
			strings.HasPrefix(line, "new file") || strings.HasPrefix(line, "deleted file") ||
			strings.HasPrefix(line, "rename ") || strings.HasPrefix(line, "index ") ||
			strings.HasPrefix(line, "---") || strings.HasPrefix(line, "@@") {
			continue
		}
		if strings.HasPrefix(line, "+") {
			b.WriteString(line[1:])
			b.WriteString("\n")
		}
	}
	return b.String()
}

// MergeSymbols returns each extraction's Change with Symbols populated from
// its Defs followed by its Usages, the shape output.orderedFiles depends on
// to place definition files before usage files within a patch.
func MergeSymbols(extractions []Extraction) []model.Change {
	out := make([]model.Change, len(extractions))
	for i, e := range extractions {
		c := e.Change
		c.Symbols = append(append([]model.Symbol{}, e.Defs...), e.Usages...)
		out[i] = c
	}
	return out
}

// Analyze builds the Dependency edges for a set of Changes, per spec §4.3.
func (a *Analyzer) Analyze(extractions []Extraction) []model.Dependency {
	qualifiedIndex := map[string]string{}  // "<pkg_hint>.<Symbol>" -> change id
	sameFileIndex := map[string]string{}   // "<file>:<Symbol>" -> change id
	packageIndex := map[string][]string{}  // directory -> change ids defining there

	for _, e := range extractions {
		dir := path.Dir(e.Change.File)
		hint := path.Base(dir)
		definesAnything := false
		for _, d := range e.Defs {
			qualifiedIndex[hint+"."+d.Name] = e.Change.ID
			sameFileIndex[e.Change.File+":"+d.Name] = e.Change.ID
			definesAnything = true
		}
		if definesAnything {
			packageIndex[dir] = append(packageIndex[dir], e.Change.ID)
		}
	}

	var deps []model.Dependency
	seen := map[string]bool{}
	addEdge := func(source, target string, kind model.DependencyKind, strength float64, reason string) {
		if source == target {
			return
		}
		key := source + "\x00" + target + "\x00" + string(kind)
		if seen[key] {
			return
		}
		seen[key] = true
		deps = append(deps, model.Dependency{Source: source, Target: target, Kind: kind, Strength: strength, Reason: reason})
	}

	byID := map[string]model.Change{}
	for _, e := range extractions {
		byID[e.Change.ID] = e.Change
	}

	for _, e := range extractions {
		for _, u := range e.Usages {
			qname := u.QualifiedName()
			dir := path.Dir(e.Change.File)
			hint := path.Base(dir)
			var target string
			if tid, ok := qualifiedIndex[qname]; ok && tid != e.Change.ID {
				target = tid
			} else if tid, ok := qualifiedIndex[hint+"."+u.Name]; ok && tid != e.Change.ID {
				target = tid
			} else if tid, ok := sameFileIndex[e.Change.File+":"+u.Name]; ok && tid != e.Change.ID {
				target = tid
			}
			if target == "" {
				continue
			}
			strength := edgeStrength(byID[e.Change.ID], byID[target])
			kind := model.DepDefinesUses
			reason := "usage of " + qname + " resolved via qualified index"
			switch {
			case u.Qualified == "" && u.Alias == "" && u.Kind == model.SymbolFunction:
				// A bare call_expression/call, unqualified by construction
				// (langparse never sets Alias/Qualified for it), to a function
				// or method defined elsewhere in the same package/module.
				kind = model.DepCallChain
				reason = "call to " + qname + " resolved via qualified index"
			case byID[e.Change.ID].Kind == model.ChangeModify:
				kind = model.DepModifiesUses
			}
			addEdge(e.Change.ID, target, kind, strength, reason)
		}

		for alias, modPath := range e.Imports {
			stdlib, external := classifyImport(e.Change.Language, modPath)
			if stdlib || external {
				continue
			}
			dir := resolveImportDir(e.Change.File, modPath)
			for _, targetID := range packageIndex[dir] {
				if targetID == e.Change.ID {
					continue
				}
				strength := edgeStrength(byID[e.Change.ID], byID[targetID])
				addEdge(e.Change.ID, targetID, model.DepImport, strength, "imports package "+alias+" ("+modPath+")")
			}
		}
	}

	return deps
}

// edgeStrength implements the spec's strength rule: both endpoints `add` ->
// 0.8 (orderable); otherwise 1.0 (critical).
func edgeStrength(source, target model.Change) float64 {
	if source.Kind == model.ChangeAdd && target.Kind == model.ChangeAdd {
		return 0.8
	}
	return 1.0
}

// resolveImportDir maps an import path to a best-guess directory within the
// diff, per the spec's acknowledged "package hint = immediate parent
// directory" heuristic (imprecise for Go modules whose import paths embed a
// repo prefix; richer resolution needs go.mod/package.json and is out of
// scope here, per spec §9's Open Questions).
func resolveImportDir(file, importPath string) string {
	segments := strings.FieldsFunc(importPath, func(r rune) bool {
		return r == '/' || r == '.' || r == ':'
	})
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	return path.Join(path.Dir(path.Dir(file)), last)
}
