// Package semgroup derives soft SemanticGroup hints from Changes: file
// proximity, renames, extractions, API changes, symbol co-occurrence, and
// near-duplicate mechanical edits across files. Groups only bias the
// splitter's merge pass; none of them force changes together the way an
// AtomicGroup does.
package semgroup

import (
	"path"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/patchsplit/patchsplit/internal/depanalyze"
	"github.com/patchsplit/patchsplit/internal/model"
)

// Grouper derives SemanticGroups from a set of Changes and their per-change
// extraction results.
type Grouper struct{}

// New creates a Grouper.
func New() *Grouper { return &Grouper{} }

// Group runs every producer and returns the deduplicated, cohesion-sorted
// result.
func (g *Grouper) Group(changes []model.Change, extractions []depanalyze.Extraction) []model.SemanticGroup {
	var candidates []model.SemanticGroup
	candidates = append(candidates, fileProximityGroups(changes)...)
	candidates = append(candidates, renameGroups(extractions)...)
	candidates = append(candidates, extractionGroups(changes, extractions)...)
	candidates = append(candidates, apiChangeGroups(changes, extractions)...)
	candidates = append(candidates, coOccurrenceGroups(extractions)...)
	candidates = append(candidates, duplicateEditGroups(changes)...)

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Cohesion > candidates[j].Cohesion })

	covered := map[string]bool{}
	var out []model.SemanticGroup
	for _, cand := range candidates {
		if len(cand.Changes) == 0 {
			continue
		}
		overlap := 0
		for _, id := range cand.Changes {
			if covered[id] {
				overlap++
			}
		}
		if float64(overlap)/float64(len(cand.Changes)) >= 0.5 {
			continue
		}
		for _, id := range cand.Changes {
			covered[id] = true
		}
		out = append(out, cand)
	}
	return out
}

// fileProximityGroups groups all changes within a single file, with cohesion
// derived from the normalized mean line-gap between adjacent hunks, floored
// at 0.5.
func fileProximityGroups(changes []model.Change) []model.SemanticGroup {
	byFile := map[string][]model.Change{}
	for _, c := range changes {
		byFile[c.File] = append(byFile[c.File], c)
	}

	var files []string
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var groups []model.SemanticGroup
	for _, f := range files {
		fc := byFile[f]
		if len(fc) < 2 {
			continue
		}
		sort.Slice(fc, func(i, j int) bool { return fc[i].StartLine < fc[j].StartLine })
		var gaps []int
		for i := 1; i < len(fc); i++ {
			gap := fc[i].StartLine - fc[i-1].EndLine
			if gap < 0 {
				gap = 0
			}
			gaps = append(gaps, gap)
		}
		meanGap := 0.0
		for _, gp := range gaps {
			meanGap += float64(gp)
		}
		if len(gaps) > 0 {
			meanGap /= float64(len(gaps))
		}
		normalized := meanGap / 100.0
		if normalized > 1 {
			normalized = 1
		}
		cohesion := 1 - normalized
		if cohesion < 0.5 {
			cohesion = 0.5
		}
		var ids []string
		for _, c := range fc {
			ids = append(ids, c.ID)
		}
		groups = append(groups, model.SemanticGroup{
			Name: "file: " + f, Changes: ids, Cohesion: cohesion, Kind: "file_proximity",
		})
	}
	return groups
}

// renameGroups groups changes that share a symbol name appearing in at least
// three changes (a signal that the symbol is being renamed or threaded
// consistently through the diff).
func renameGroups(extractions []depanalyze.Extraction) []model.SemanticGroup {
	bySymbol := map[string]map[string]bool{}
	for _, e := range extractions {
		names := map[string]bool{}
		for _, s := range e.Defs {
			names[s.Name] = true
		}
		for _, s := range e.Usages {
			names[s.Name] = true
		}
		for name := range names {
			if bySymbol[name] == nil {
				bySymbol[name] = map[string]bool{}
			}
			bySymbol[name][e.Change.ID] = true
		}
	}

	var names []string
	for n := range bySymbol {
		names = append(names, n)
	}
	sort.Strings(names)

	var groups []model.SemanticGroup
	for _, name := range names {
		ids := bySymbol[name]
		if len(ids) < 3 {
			continue
		}
		var list []string
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		groups = append(groups, model.SemanticGroup{
			Name: "rename: " + name, Changes: list, Cohesion: 0.95, Kind: "rename",
		})
	}
	return groups
}

// extractionGroups pairs a new `add` change defining a function or class
// with `delete` changes in the same file, or a related file (same
// directory, or one file's stem contained in the other's).
func extractionGroups(changes []model.Change, extractions []depanalyze.Extraction) []model.SemanticGroup {
	defsByChange := map[string]bool{}
	for _, e := range extractions {
		for _, d := range e.Defs {
			if d.Kind == model.SymbolFunction || d.Kind == model.SymbolClass || d.Kind == model.SymbolMethod {
				defsByChange[e.Change.ID] = true
			}
		}
	}

	var adds, deletes []model.Change
	for _, c := range changes {
		switch c.Kind {
		case model.ChangeAdd:
			if defsByChange[c.ID] {
				adds = append(adds, c)
			}
		case model.ChangeDelete:
			deletes = append(deletes, c)
		}
	}

	var groups []model.SemanticGroup
	for _, a := range adds {
		var ids []string
		for _, d := range deletes {
			if d.File == a.File || related(a.File, d.File) {
				ids = append(ids, d.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		ids = append(ids, a.ID)
		sort.Strings(ids)
		groups = append(groups, model.SemanticGroup{
			Name: "extraction: " + a.File, Changes: ids, Cohesion: 0.9, Kind: "extraction",
		})
	}
	return groups
}

func related(a, b string) bool {
	if path.Dir(a) == path.Dir(b) {
		return true
	}
	stemA := stem(a)
	stemB := stem(b)
	return strings.Contains(stemB, stemA) || strings.Contains(stemA, stemB)
}

func stem(file string) string {
	base := path.Base(file)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// apiChangeGroups pairs a `modify` change touching a function/method
// definition with any other change whose symbols reference that function's
// name.
func apiChangeGroups(changes []model.Change, extractions []depanalyze.Extraction) []model.SemanticGroup {
	byID := map[string]depanalyze.Extraction{}
	for _, e := range extractions {
		byID[e.Change.ID] = e
	}

	var groups []model.SemanticGroup
	for _, c := range changes {
		if c.Kind != model.ChangeModify {
			continue
		}
		ext := byID[c.ID]
		var apiNames []string
		for _, d := range ext.Defs {
			if d.Kind == model.SymbolFunction || d.Kind == model.SymbolMethod {
				apiNames = append(apiNames, d.Name)
			}
		}
		if len(apiNames) == 0 {
			continue
		}
		nameSet := map[string]bool{}
		for _, n := range apiNames {
			nameSet[n] = true
		}

		ids := map[string]bool{c.ID: true}
		for _, other := range extractions {
			if other.Change.ID == c.ID {
				continue
			}
			for _, s := range append(append([]model.Symbol{}, other.Defs...), other.Usages...) {
				if nameSet[s.Name] {
					ids[other.Change.ID] = true
					break
				}
			}
		}
		if len(ids) < 2 {
			continue
		}
		var list []string
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		groups = append(groups, model.SemanticGroup{
			Name: "api change: " + strings.Join(apiNames, ","), Changes: list, Cohesion: 0.85, Kind: "api_change",
		})
	}
	return groups
}

// coOccurrenceGroups runs union-find over changes that share symbol names,
// joining two changes when the Jaccard similarity of their symbol-name sets
// exceeds 0.3.
func coOccurrenceGroups(extractions []depanalyze.Extraction) []model.SemanticGroup {
	symbolSets := map[string]map[string]bool{}
	var order []string
	for _, e := range extractions {
		set := map[string]bool{}
		for _, s := range e.Defs {
			set[s.Name] = true
		}
		for _, s := range e.Usages {
			set[s.Name] = true
		}
		if len(set) == 0 {
			continue
		}
		symbolSets[e.Change.ID] = set
		order = append(order, e.Change.ID)
	}

	parent := map[string]string{}
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if jaccard(symbolSets[order[i]], symbolSets[order[j]]) > 0.3 {
				union(order[i], order[j])
			}
		}
	}

	byRoot := map[string][]string{}
	for _, id := range order {
		r := find(id)
		byRoot[r] = append(byRoot[r], id)
	}

	var roots []string
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	var groups []model.SemanticGroup
	for _, r := range roots {
		members := byRoot[r]
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		groups = append(groups, model.SemanticGroup{
			Name: "co-occurrence: " + r, Changes: members, Cohesion: 0.7, Kind: "co_occurrence",
		})
	}
	return groups
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// JaccardIDs computes Jaccard similarity between two change-id sets, used by
// the splitter's merge pass for semantic-group affinity.
func JaccardIDs(a, b []string) float64 {
	setA := map[string]bool{}
	for _, x := range a {
		setA[x] = true
	}
	setB := map[string]bool{}
	for _, x := range b {
		setB[x] = true
	}
	return jaccard(setA, setB)
}

// duplicateEditGroups finds changes in different files whose hunk text is
// near-identical, the signature of a mechanical edit (a renamed import, a
// repeated boilerplate fix) repeated file by file. Similarity is measured
// with diffmatchpatch's Myers diff rather than a hand-rolled comparison, so
// that line reordering within a hunk doesn't defeat the match the way a
// naive string-equality check would.
func duplicateEditGroups(changes []model.Change) []model.SemanticGroup {
	dmp := diffmatchpatch.New()
	uf := newUnionFind(len(changes))
	pairCohesion := map[[2]int]float64{}

	for i := 0; i < len(changes); i++ {
		for j := i + 1; j < len(changes); j++ {
			a, b := changes[i], changes[j]
			if a.File == b.File {
				continue
			}
			if !similarSize(a.Size(), b.Size()) {
				continue
			}
			ratio := hunkSimilarity(dmp, a.RawHunk, b.RawHunk)
			if ratio >= 0.6 {
				uf.union(i, j)
				pairCohesion[[2]int{i, j}] = ratio
			}
		}
	}

	members := map[int][]int{}
	for i := range changes {
		root := uf.find(i)
		members[root] = append(members[root], i)
	}

	var roots []int
	for r, ms := range members {
		if len(ms) > 1 {
			roots = append(roots, r)
		}
	}
	sort.Ints(roots)

	var groups []model.SemanticGroup
	for _, r := range roots {
		idxs := members[r]
		sort.Ints(idxs)
		var ids []string
		sum, n := 0.0, 0
		for _, i := range idxs {
			ids = append(ids, changes[i].ID)
			for _, j := range idxs {
				if ratio, ok := pairCohesion[[2]int{i, j}]; ok {
					sum += ratio
					n++
				}
			}
		}
		cohesion := 0.6
		if n > 0 {
			cohesion = sum / float64(n)
		}
		groups = append(groups, model.SemanticGroup{
			Name: "duplicate edit", Changes: ids, Cohesion: cohesion, Kind: "duplicate_edit",
		})
	}
	return groups
}

// similarSize keeps the O(n^2) comparison in duplicateEditGroups cheap by
// skipping pairs whose size differs enough that a high text-similarity ratio
// is impossible anyway.
func similarSize(a, b int) bool {
	if a == 0 || b == 0 {
		return a == b
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(lo)/float64(hi) >= 0.5
}

// hunkSimilarity returns a 0..1 ratio of how much of the longer hunk's text
// is shared with the shorter, via Levenshtein distance over the computed
// diff.
func hunkSimilarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
