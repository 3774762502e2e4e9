// Package splitter packs Changes, AtomicGroups, and SemanticGroups into an
// ordered sequence of size-targeted Patches, following the design spec's
// nine-step algorithm: new-feature heuristic, atomic-group seeding with
// layered pre-split, layered bucket split for loose changes, a greedy
// pairwise merge pass gated on non-separability or size+affinity, final
// patch construction with warnings, a patch-dependency graph, cycle-broken
// topological sort, and id renumbering.
package splitter

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/patchsplit/patchsplit/internal/depgraph"
	"github.com/patchsplit/patchsplit/internal/model"
	"github.com/patchsplit/patchsplit/internal/semgroup"
)

// candidate is an in-progress patch before final construction.
type candidate struct {
	changes []string
	atomic  bool
	name    string
	desc    string
}

func (c *candidate) size(byID map[string]model.Change) int {
	total := 0
	for _, id := range c.changes {
		total += byID[id].Size()
	}
	return total
}

// Splitter builds Patches from the pipeline's intermediate artifacts.
type Splitter struct {
	TargetSize int
	MaxPatches *int
}

// New creates a Splitter targeting the given patch size in changed lines.
func New(targetSize int, maxPatches *int) *Splitter {
	if targetSize <= 0 {
		targetSize = 200
	}
	return &Splitter{TargetSize: targetSize, MaxPatches: maxPatches}
}

// Split runs the full nine-step algorithm and returns the final, id-ordered
// Patches along with any cycle-breaking warnings.
func (s *Splitter) Split(changes []model.Change, atomicGroups []model.AtomicGroup, semanticGroups []model.SemanticGroup, g *depgraph.Graph) ([]model.Patch, []string) {
	byID := make(map[string]model.Change, len(changes))
	for _, c := range changes {
		byID[c.ID] = c
	}

	newFeature := isNewFeatureMode(changes)

	assigned := map[string]bool{}
	var candidates []candidate

	for i, ag := range atomicGroups {
		if len(ag.Changes) == 0 {
			continue
		}
		if newFeature && atomicGroupSize(ag, byID) > s.TargetSize*2 {
			for _, sub := range splitAtomicByLayer(ag, byID) {
				candidates = append(candidates, sub)
				for _, id := range sub.changes {
					assigned[id] = true
				}
			}
			continue
		}
		cand := candidate{
			changes: append([]string(nil), ag.Changes...),
			atomic:  true,
			name:    fmt.Sprintf("atomic group %d", i),
			desc:    ag.Reason,
		}
		candidates = append(candidates, cand)
		for _, id := range ag.Changes {
			assigned[id] = true
		}
	}

	var loose []model.Change
	for _, c := range changes {
		if !assigned[c.ID] {
			loose = append(loose, c)
		}
	}

	if newFeature {
		bucketCandidates, remainder := layeredSplit(loose, s.TargetSize)
		candidates = append(candidates, bucketCandidates...)
		loose = remainder
	}

	for _, c := range loose {
		candidates = append(candidates, candidate{changes: []string{c.ID}, name: "loose: " + c.File})
	}

	candidates = s.mergePass(candidates, byID, g, semanticGroups)

	patches := make([]model.Patch, 0, len(candidates))
	for _, c := range candidates {
		patches = append(patches, s.buildPatch(c, byID))
	}

	return s.orderAndRenumber(patches, g)
}

// isNewFeatureMode implements step 1: more than 70% of changes are `add`.
func isNewFeatureMode(changes []model.Change) bool {
	if len(changes) == 0 {
		return false
	}
	adds := 0
	for _, c := range changes {
		if c.Kind == model.ChangeAdd {
			adds++
		}
	}
	return float64(adds)/float64(len(changes)) > 0.7
}

func atomicGroupSize(ag model.AtomicGroup, byID map[string]model.Change) int {
	total := 0
	for _, id := range ag.Changes {
		total += byID[id].Size()
	}
	return total
}

// bucket classification for the layered split (step 3).
type bucketKind int

const (
	bucketInterfaces bucketKind = iota
	bucketUtilities
	bucketImplementations
	bucketControllers
)

var bucketOrder = []bucketKind{bucketInterfaces, bucketUtilities, bucketImplementations, bucketControllers}

var bucketNames = map[bucketKind]string{
	bucketInterfaces:      "interfaces/types/models",
	bucketUtilities:       "utilities",
	bucketImplementations: "implementations",
	bucketControllers:     "controllers/handlers",
}

func classifyBucket(file string) bucketKind {
	lower := strings.ToLower(file)
	switch {
	case strings.Contains(lower, "/model/") || strings.Contains(lower, "/models/") ||
		strings.Contains(lower, "/types/") || strings.Contains(lower, "/interfaces/") ||
		strings.HasSuffix(lower, "interface.go") || strings.HasSuffix(lower, ".d.ts"):
		return bucketInterfaces
	case strings.Contains(lower, "/util/") || strings.Contains(lower, "/utils/") ||
		strings.Contains(lower, "/helpers/") || strings.Contains(lower, "/common/"):
		return bucketUtilities
	case strings.Contains(lower, "/controller/") || strings.Contains(lower, "/controllers/") ||
		strings.Contains(lower, "/handler/") || strings.Contains(lower, "/handlers/") ||
		strings.Contains(lower, "/cmd/") || strings.Contains(lower, "/api/"):
		return bucketControllers
	default:
		return bucketImplementations
	}
}

// layeredSplit implements step 3: classify loose changes into the four
// fixed buckets, merging small implementation sub-packages by parent
// directory until each reaches target size.
func layeredSplit(loose []model.Change, targetSize int) ([]candidate, []model.Change) {
	if len(loose) == 0 {
		return nil, loose
	}
	buckets := map[bucketKind][]model.Change{}
	for _, c := range loose {
		k := classifyBucket(c.File)
		buckets[k] = append(buckets[k], c)
	}

	var candidates []candidate
	for _, k := range bucketOrder {
		bucketChanges := buckets[k]
		if len(bucketChanges) == 0 {
			continue
		}
		if k == bucketImplementations {
			candidates = append(candidates, mergeByDirectory(bucketChanges, targetSize)...)
			continue
		}
		var ids []string
		for _, c := range bucketChanges {
			ids = append(ids, c.ID)
		}
		candidates = append(candidates, candidate{changes: ids, name: bucketNames[k]})
	}
	return candidates, nil
}

func mergeByDirectory(changes []model.Change, targetSize int) []candidate {
	byDir := map[string][]model.Change{}
	for _, c := range changes {
		byDir[path.Dir(c.File)] = append(byDir[path.Dir(c.File)], c)
	}
	var dirs []string
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var out []candidate
	var pending []string
	pendingSize := 0
	for _, d := range dirs {
		dc := byDir[d]
		var ids []string
		size := 0
		for _, c := range dc {
			ids = append(ids, c.ID)
			size += c.Size()
		}
		if size < targetSize {
			pending = append(pending, ids...)
			pendingSize += size
			if pendingSize >= targetSize {
				out = append(out, candidate{changes: pending, name: bucketNames[bucketImplementations]})
				pending = nil
				pendingSize = 0
			}
			continue
		}
		out = append(out, candidate{changes: ids, name: "implementations: " + d})
	}
	if len(pending) > 0 {
		out = append(out, candidate{changes: pending, name: bucketNames[bucketImplementations]})
	}
	return out
}

// splitAtomicByLayer breaks an oversize atomic group, in new-feature mode,
// into per-bucket sub-candidates while keeping all of its members flagged
// atomic (the group's internal ordering constraint still applies via the
// dependency graph; only the candidate's human framing changes).
func splitAtomicByLayer(ag model.AtomicGroup, byID map[string]model.Change) []candidate {
	buckets := map[bucketKind][]string{}
	for _, id := range ag.Changes {
		k := classifyBucket(byID[id].File)
		buckets[k] = append(buckets[k], id)
	}
	var out []candidate
	for _, k := range bucketOrder {
		ids := buckets[k]
		if len(ids) == 0 {
			continue
		}
		out = append(out, candidate{changes: ids, atomic: true, name: "atomic/" + bucketNames[k], desc: ag.Reason})
	}
	return out
}

// mergePass implements step 5: pairwise left-to-right greedy merge. Two
// candidates merge when required (a non-separable pair of changes between
// them) or permitted (combined size within 1.5x target and semantic-group
// Jaccard affinity above 0.5).
func (s *Splitter) mergePass(candidates []candidate, byID map[string]model.Change, g *depgraph.Graph, semanticGroups []model.SemanticGroup) []candidate {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(candidates); i++ {
			for j := i + 1; j < len(candidates); j++ {
				if s.shouldMerge(candidates[i], candidates[j], byID, g, semanticGroups) {
					candidates[i].changes = append(candidates[i].changes, candidates[j].changes...)
					candidates[i].atomic = candidates[i].atomic || candidates[j].atomic
					candidates = append(candidates[:j], candidates[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return candidates
}

func (s *Splitter) shouldMerge(a, b candidate, byID map[string]model.Change, g *depgraph.Graph, semanticGroups []model.SemanticGroup) bool {
	for _, x := range a.changes {
		for _, y := range b.changes {
			if !g.CanSeparate(x, y) {
				return true
			}
		}
	}

	combined := a.size(byID) + b.size(byID)
	if combined > int(1.5*float64(s.TargetSize)) {
		return false
	}

	direct := semgroup.JaccardIDs(a.changes, b.changes)
	if direct > 0.5 {
		return true
	}
	var groupsA, groupsB []string
	for i, sg := range semanticGroups {
		if semgroup.JaccardIDs(sg.Changes, a.changes) > 0 {
			groupsA = append(groupsA, fmt.Sprint(i))
		}
		if semgroup.JaccardIDs(sg.Changes, b.changes) > 0 {
			groupsB = append(groupsB, fmt.Sprint(i))
		}
	}
	return semgroup.JaccardIDs(groupsA, groupsB) > 0.5
}

func (s *Splitter) buildPatch(c candidate, byID map[string]model.Change) model.Patch {
	size := c.size(byID)
	var warnings []string
	if size > 500 {
		warnings = append(warnings, "patch exceeds 500 changed lines")
	}
	if len(c.changes) > 20 {
		warnings = append(warnings, "patch touches more than 20 hunks")
	}

	name := c.name
	if name == "" {
		name = describeCandidate(c, byID)
	}
	desc := c.desc
	if desc == "" {
		desc = describeCandidate(c, byID)
	}

	sort.Strings(c.changes)

	return model.Patch{
		Name:        name,
		Description: desc,
		Category:    categoryFor(c, byID),
		Changes:     c.changes,
		TotalLines:  size,
		Warnings:    warnings,
		Annotations: map[string]string{},
	}
}

func describeCandidate(c candidate, byID map[string]model.Change) string {
	files := map[string]bool{}
	for _, id := range c.changes {
		files[byID[id].File] = true
	}
	var list []string
	for f := range files {
		list = append(list, f)
	}
	sort.Strings(list)
	if len(list) == 1 {
		return "changes to " + list[0]
	}
	return fmt.Sprintf("changes across %d files", len(list))
}

func categoryFor(c candidate, byID map[string]model.Change) string {
	if c.atomic {
		return "atomic"
	}
	kinds := map[model.ChangeKind]int{}
	for _, id := range c.changes {
		kinds[byID[id].Kind]++
	}
	switch {
	case kinds[model.ChangeAdd] == len(c.changes):
		return "feature"
	case kinds[model.ChangeDelete] == len(c.changes):
		return "removal"
	default:
		return "change"
	}
}

// orderAndRenumber implements steps 7-9: build the patch-dependency graph,
// topologically sort with cycle breaking, and assign stable ids 0..N-1 with
// remapped depends_on lists.
func (s *Splitter) orderAndRenumber(patches []model.Patch, g *depgraph.Graph) ([]model.Patch, []string) {
	ownerOf := map[string]int{}
	for i, p := range patches {
		for _, id := range p.Changes {
			ownerOf[id] = i
		}
	}

	pg := newPatchGraph(len(patches))
	depsOf := make(map[int]map[int]bool, len(patches))
	for i, p := range patches {
		for _, id := range p.Changes {
			for _, pred := range g.Predecessors(id) {
				if owner, ok := ownerOf[pred]; ok && owner != i {
					// owner must be applied before i: edge owner -> i so
					// Kahn's indegree-0-first ordering visits owner first.
					pg.addEdge(owner, i)
					if depsOf[i] == nil {
						depsOf[i] = map[int]bool{}
					}
					depsOf[i][owner] = true
				}
			}
		}
	}

	order, warnings := pg.topoSort()

	newIndex := make(map[int]int, len(order))
	for newID, oldIdx := range order {
		newIndex[oldIdx] = newID
	}

	out := make([]model.Patch, len(patches))
	for oldIdx, p := range patches {
		newID := newIndex[oldIdx]
		p.ID = newID
		var deps []int
		for dep := range depsOf[oldIdx] {
			if depNew, ok := newIndex[dep]; ok && depNew < newID {
				deps = append(deps, depNew)
			}
		}
		sort.Ints(deps)
		p.DependsOn = deps
		out[newID] = p
	}
	return out, warnings
}

// patchGraph is a small integer-indexed directed graph used only for patch
// ordering; it mirrors depgraph's SCC/topo-sort logic at patch granularity.
type patchGraph struct {
	n     int
	edges map[int][]int
}

func newPatchGraph(n int) *patchGraph {
	return &patchGraph{n: n, edges: map[int][]int{}}
}

func (pg *patchGraph) addEdge(from, to int) {
	for _, e := range pg.edges[from] {
		if e == to {
			return
		}
	}
	pg.edges[from] = append(pg.edges[from], to)
}

// topoSort returns the order as a slice where order[newID] = oldIdx,
// breaking cycles by dropping edges within detected SCCs (the edge into the
// component's lowest index from the highest-indexed member that has one).
func (pg *patchGraph) topoSort() ([]int, []string) {
	var warnings []string
	edges := make(map[int][]int, len(pg.edges))
	for k, v := range pg.edges {
		edges[k] = append([]int(nil), v...)
	}

	for {
		order, ok := pg.kahn(edges)
		if ok {
			return order, warnings
		}
		comp := pg.findCycle(edges)
		if len(comp) == 0 {
			order := make([]int, pg.n)
			for i := range order {
				order[i] = i
			}
			return order, warnings
		}
		sort.Ints(comp)
		dst := comp[0]
		src := -1
		for _, m := range comp {
			for _, t := range edges[m] {
				if t == dst {
					src = m
				}
			}
		}
		edges[src] = removeIntOne(edges[src], dst)
		warnings = append(warnings, fmt.Sprintf("broke dependency cycle between patch candidates %d and %d", src, dst))
	}
}

func removeIntOne(list []int, v int) []int {
	for i, x := range list {
		if x == v {
			return append(append([]int(nil), list[:i]...), list[i+1:]...)
		}
	}
	return list
}

func (pg *patchGraph) kahn(edges map[int][]int) ([]int, bool) {
	indeg := make([]int, pg.n)
	for _, outs := range edges {
		for _, t := range outs {
			indeg[t]++
		}
	}
	var queue []int
	for i := 0; i < pg.n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	var order []int
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		var newlyZero []int
		for _, t := range edges[n] {
			indeg[t]--
			if indeg[t] == 0 {
				newlyZero = append(newlyZero, t)
			}
		}
		sort.Ints(newlyZero)
		queue = append(queue, newlyZero...)
	}
	return order, len(order) == pg.n
}

func (pg *patchGraph) findCycle(edges map[int][]int) []int {
	index := 0
	indices := make([]int, pg.n)
	lowlink := make([]int, pg.n)
	visited := make([]bool, pg.n)
	onStack := make([]bool, pg.n)
	var stack []int
	var found []int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		visited[v] = true
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if !visited[w] {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] && found == nil {
			var comp []int
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 {
				found = comp
			}
		}
	}

	for v := 0; v < pg.n; v++ {
		if !visited[v] {
			strongconnect(v)
		}
	}
	return found
}
