// Package model defines the core data types shared across every stage of the
// patchsplit pipeline: Symbol, Change, Dependency, AtomicGroup, SemanticGroup,
// Patch, and PatchSplitResult. Data flows strictly forward through these
// types; none of them keep back-references (a Symbol never points at the
// Change that owns it), so the dependency graph can stay a plain adjacency
// list keyed by change id.
package model

import "strconv"

// Language identifies the source language a hunk's content is written in.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangUnknown    Language = "unknown"
)

// extensionLanguages is the fixed file-extension table from the spec.
var extensionLanguages = map[string]Language{
	".py":   LangPython,
	".go":   LangGo,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".java": LangJava,
	".rs":   LangRust,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCpp,
	".cc":   LangCpp,
	".hpp":  LangCpp,
}

// LanguageForExtension returns the Language for a file extension (including
// the leading dot), or LangUnknown if it is not in the fixed table.
func LanguageForExtension(ext string) Language {
	if l, ok := extensionLanguages[ext]; ok {
		return l
	}
	return LangUnknown
}

// SymbolKind classifies a Symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolClass     SymbolKind = "class"
	SymbolVariable  SymbolKind = "variable"
	SymbolType      SymbolKind = "type"
	SymbolInterface SymbolKind = "interface"
	SymbolField     SymbolKind = "field"
	SymbolImport    SymbolKind = "import"
)

// SymbolRole distinguishes a definition from a usage.
type SymbolRole string

const (
	RoleDefinition SymbolRole = "definition"
	RoleUsage      SymbolRole = "usage"
)

// Symbol is a lexical entity found in a hunk's added lines.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	File    string
	Line    int
	Role    SymbolRole
	Alias   string // import alias / package qualifier, if any
	Scope   string // enclosing scope (e.g. receiver type, class name)
	Qualified string // fully-qualified name, if resolvable
}

// QualifiedName returns the best qualified identifier for matching this
// symbol against the DependencyAnalyzer's indices: an explicit Qualified
// name if present, else "<Alias>.<Name>", else bare Name.
func (s Symbol) QualifiedName() string {
	if s.Qualified != "" {
		return s.Qualified
	}
	if s.Alias != "" {
		return s.Alias + "." + s.Name
	}
	return s.Name
}

// Identity is the tuple that uniquely identifies a Symbol per the spec:
// (name, kind, file, line, role).
func (s Symbol) Identity() [5]string {
	return [5]string{s.Name, string(s.Kind), s.File, strconv.Itoa(s.Line), string(s.Role)}
}

// ChangeKind classifies a Change by its add/remove shape.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
)

// ClassifyChangeKind implements invariant (2) from the spec: add iff
// removed==0 and added>0, delete iff the reverse, else modify.
func ClassifyChangeKind(added, removed int) ChangeKind {
	switch {
	case removed == 0 && added > 0:
		return ChangeAdd
	case added == 0 && removed > 0:
		return ChangeDelete
	default:
		return ChangeModify
	}
}

// ImportMap maps an import alias (or bare package name) to the module path
// it resolves to.
type ImportMap map[string]string

// Change is a single hunk. Symbols is populated by depanalyze.MergeSymbols
// after extraction (definitions first, then usages) and is what output's
// per-patch file ordering uses to place definition files before usage
// files; it is left nil on a Change that was never run through extraction.
type Change struct {
	ID         string // "<file>:hunk_<index>"
	File       string
	HunkIndex  int // 0-based, contiguous within File
	Kind       ChangeKind
	Language   Language
	Symbols    []Symbol
	Imports    ImportMap
	StartLine  int // target-file line range [StartLine, EndLine)
	EndLine    int
	RawHunk    string // verbatim hunk text including @@ header
	Added      int
	Removed    int
}

// Size returns the changed-line count used by the splitter's size budgets.
func (c Change) Size() int {
	return c.Added + c.Removed
}

// DependencyKind classifies a Dependency edge.
type DependencyKind string

const (
	DepDefinesUses     DependencyKind = "defines_uses"
	DepModifiesUses    DependencyKind = "modifies_uses"
	DepImport          DependencyKind = "import"
	DepCallChain       DependencyKind = "call_chain"
	DepTypeDependency  DependencyKind = "type_dependency"
)

// Dependency is a directed edge: Source depends on Target, meaning Target
// must be applied before or together with Source.
type Dependency struct {
	Source   string
	Target   string
	Kind     DependencyKind
	Strength float64
	Reason   string
}

// Critical reports whether this dependency must be treated as atomic /
// strictly ordered (strength >= 1.0).
func (d Dependency) Critical() bool {
	return d.Strength >= 1.0
}

// AtomicGroup is a set of Change ids that must ship in a single patch.
type AtomicGroup struct {
	ID      string
	Changes []string
	Reason  string
}

// SemanticGroup is a soft clustering hint; groups may overlap and only bias
// merging, never force it.
type SemanticGroup struct {
	Name     string
	Changes  []string
	Cohesion float64
	Kind     string // "file_proximity" | "rename" | "extraction" | "api_change" | "co_occurrence" | "duplicate_edit" | "llm_suggested"
}

// Patch is an emitted, ordered subset of Changes.
type Patch struct {
	ID           int
	Name         string
	Description  string
	Category     string
	Priority     string
	Changes      []string // Change ids, in intra-patch order
	DependsOn    []int    // prerequisite patch ids, always < ID after renumbering
	TotalLines   int
	Warnings     []string
	Annotations  map[string]string
}

// PatchSplitResult is the pipeline's terminal output.
type PatchSplitResult struct {
	Patches        []Patch
	TopologicalIDs []int
	AtomicGroups   []AtomicGroup
	SemanticGroups []SemanticGroup
	Warnings       []string
	Metrics        Metrics
	MentalModel    string
	PartialResult  bool
}

// Metrics carries the Validator & Optimizer's quality metrics (spec §4.7).
type Metrics struct {
	NumPatches         int
	TotalChangedLines  int
	MeanPatchSize      float64
	MinPatchSize       int
	MaxPatchSize       int
	SizeVariance       float64
	PatchesWithWarnings int
	MaxChainDepth      int
	BalanceScore       float64
	ReviewabilityScore float64
	Suggestions        []string
}
