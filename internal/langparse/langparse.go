// Package langparse extracts symbol definitions, usages, and import maps
// from the added lines of a single hunk. It is a tagged variant over
// {Go, Python, JavaScript, TypeScript, Java, Rust, C, Cpp, Unknown} with a
// common ExtractAll operation, per the design spec's dynamic-dispatch
// guidance: AST-backed where a tree-sitter grammar is available in this
// module's dependency set (Go, Python, JavaScript, TypeScript — grounded on
// github.com/smacker/go-tree-sitter as used in the corpus's codenerd
// repository), regex-backed otherwise (Java, Rust, C, C++ — no tree-sitter
// grammar package for these is present anywhere in the example corpus).
package langparse

import (
	"github.com/patchsplit/patchsplit/internal/model"
)

// Result is the (definitions, usages, imports) triple ExtractAll returns.
type Result struct {
	Definitions []model.Symbol
	Usages      []model.Symbol
	Imports     model.ImportMap
}

// Extractor extracts symbols from a hunk's added-line text.
type Extractor interface {
	// ExtractAll walks text (the concatenated added lines of one hunk) and
	// returns definitions, usages, and the import alias map. lineBase is the
	// 1-based target-file line number of the first line in text.
	ExtractAll(text, file string, lineBase int) Result
}

// For returns the Extractor for a language, preferring an AST-backed
// implementation and falling back to regex when no grammar is wired.
func For(lang model.Language) Extractor {
	switch lang {
	case model.LangGo:
		return newTreeSitterOrFallback(lang, newGoExtractor())
	case model.LangPython:
		return newTreeSitterOrFallback(lang, newPythonExtractor())
	case model.LangJavaScript:
		return newTreeSitterOrFallback(lang, newJSExtractor(false))
	case model.LangTypeScript:
		return newTreeSitterOrFallback(lang, newJSExtractor(true))
	case model.LangJava:
		return newRegexExtractor(lang)
	default:
		return newRegexExtractor(lang)
	}
}

// newTreeSitterOrFallback wraps an AST extractor so that a parse failure at
// runtime (corrupt grammar state, panic-prone malformed snippet) degrades to
// the regex extractor instead of propagating, matching the spec's
// "AST-based where available, regex fallback otherwise" contract at the
// granularity of a single call, not just a missing grammar.
func newTreeSitterOrFallback(lang model.Language, ast Extractor) Extractor {
	return &guardedExtractor{primary: ast, fallback: newRegexExtractor(lang)}
}

type guardedExtractor struct {
	primary  Extractor
	fallback Extractor
}

func (g *guardedExtractor) ExtractAll(text, file string, lineBase int) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = g.fallback.ExtractAll(text, file, lineBase)
		}
	}()
	return g.primary.ExtractAll(text, file, lineBase)
}

// dedupKey implements the spec's within-call deduplication key: (name,
// kind, role, package).
func dedupKey(s model.Symbol) string {
	return string(s.Kind) + "\x00" + s.Name + "\x00" + string(s.Role) + "\x00" + s.Alias
}

// dedup removes duplicate symbols per dedupKey, preserving first occurrence
// order.
func dedup(symbols []model.Symbol) []model.Symbol {
	seen := make(map[string]bool, len(symbols))
	out := make([]model.Symbol, 0, len(symbols))
	for _, s := range symbols {
		k := dedupKey(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func isUpper(r byte) bool {
	return r >= 'A' && r <= 'Z'
}
