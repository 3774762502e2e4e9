// Package depgraph builds the dependency graph over Change ids and provides
// the graph operations the design spec requires: strongly connected
// components (both of the full graph and of the strength>=1.0 strong
// subgraph, using directed SCCs so a one-way chain never becomes an atomic
// group), atomic-group derivation with oversize splitting, topological sort
// with cycle breaking, predecessor/successor/can-separate queries, and
// summary statistics.
package depgraph

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/patchsplit/patchsplit/internal/model"
)

// Graph is a directed graph over Change ids.
type Graph struct {
	nodes []string
	index map[string]int
	edges map[string][]model.Dependency // source -> outgoing edges
	preds map[string][]string
	succs map[string][]string
}

// New builds a Graph from an ordered list of change ids and the dependency
// edges between them.
func New(changeIDs []string, deps []model.Dependency) *Graph {
	g := &Graph{
		nodes: append([]string(nil), changeIDs...),
		index: make(map[string]int, len(changeIDs)),
		edges: make(map[string][]model.Dependency),
		preds: make(map[string][]string),
		succs: make(map[string][]string),
	}
	for i, id := range changeIDs {
		g.index[id] = i
	}
	for _, d := range deps {
		if _, ok := g.index[d.Source]; !ok {
			continue
		}
		if _, ok := g.index[d.Target]; !ok {
			continue
		}
		g.edges[d.Source] = append(g.edges[d.Source], d)
		g.succs[d.Source] = append(g.succs[d.Source], d.Target)
		g.preds[d.Target] = append(g.preds[d.Target], d.Source)
	}
	return g
}

// Nodes returns all change ids in the graph, in their original order.
func (g *Graph) Nodes() []string { return append([]string(nil), g.nodes...) }

// Edges returns all dependency edges outgoing from id.
func (g *Graph) Edges(id string) []model.Dependency { return g.edges[id] }

// AllEdges returns every edge in the graph.
func (g *Graph) AllEdges() []model.Dependency {
	var all []model.Dependency
	for _, id := range g.nodes {
		all = append(all, g.edges[id]...)
	}
	return all
}

// Predecessors returns the ids id depends on (its prerequisites, which must
// be applied at or before id's own patch).
func (g *Graph) Predecessors(id string) []string { return append([]string(nil), g.succs[id]...) }

// Successors returns the ids that depend on id (its dependents, which must
// be applied at or after id's own patch).
func (g *Graph) Successors(id string) []string { return append([]string(nil), g.preds[id]...) }

// CanSeparate reports whether a and b may land in different patches: false
// iff there is a directed path between them in both directions, or a
// strength-1.0 edge directly between them.
func (g *Graph) CanSeparate(a, b string) bool {
	for _, e := range g.edges[a] {
		if e.Target == b && e.Critical() {
			return false
		}
	}
	for _, e := range g.edges[b] {
		if e.Target == a && e.Critical() {
			return false
		}
	}
	if g.reachable(a, b) && g.reachable(b, a) {
		return false
	}
	return true
}

func (g *Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range g.succs[n] {
			if s == to {
				return true
			}
			if !visited[s] {
				visited[s] = true
				stack = append(stack, s)
			}
		}
	}
	return false
}

// SCCs computes the strongly connected components of the full graph using
// Tarjan's algorithm, returning each component as a slice of change ids.
// Singleton components with no self-loop are omitted: they are not cycles.
func (g *Graph) SCCs() [][]string {
	return tarjanSCC(g.nodes, g.succs)
}

// StrongSubgraphSCCs computes the SCCs of the subgraph restricted to edges
// with strength >= 1.0.
func (g *Graph) StrongSubgraphSCCs() [][]string {
	strongSuccs := make(map[string][]string)
	for id, edges := range g.edges {
		for _, e := range edges {
			if e.Critical() {
				strongSuccs[id] = append(strongSuccs[id], e.Target)
			}
		}
	}
	return tarjanSCC(g.nodes, strongSuccs)
}

// tarjanSCC is a standard iterative-safe (recursive, but bounded by input
// size) Tarjan SCC implementation over an adjacency map, returning only
// components of size > 1 or with a self-loop — single nodes with no cycle
// are not meaningful SCCs for atomic-group purposes.
func tarjanSCC(nodes []string, succs map[string][]string) [][]string {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succs[v] {
			if _, ok := indices[w]; !ok {
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

		if lowlink[v] == indices[v] {
			var comp []string
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
			hasSelfLoop := false
			for _, s := range succs[comp[0]] {
				if s == comp[0] {
					hasSelfLoop = true
				}
			}
			if len(comp) > 1 || hasSelfLoop {
				result = append(result, comp)
			}
		}
	}

	for _, n := range nodes {
		if _, ok := indices[n]; !ok {
			strongconnect(n)
		}
	}
	return result
}

// AtomicGroups derives the atomic groups per spec §4.4: the union of
// full-graph SCCs and strong-subgraph SCCs, with oversize groups (over
// maxLines changed lines) split by parent-directory bucketing, then by
// interfaces/models vs implementations, else left as-is.
func AtomicGroups(changes []model.Change, g *Graph, maxLines int) []model.AtomicGroup {
	byID := make(map[string]model.Change, len(changes))
	for _, c := range changes {
		byID[c.ID] = c
	}

	merged := unionGroups(g.SCCs(), g.StrongSubgraphSCCs())

	var groups []model.AtomicGroup
	for i, members := range merged {
		groups = append(groups, splitOversizeGroup(members, byID, maxLines, i)...)
	}
	return groups
}

// unionGroups merges two sets of components that may overlap (a change
// appearing in both a full-graph SCC and a strong-subgraph SCC belongs to
// one merged group) via union-find over change ids.
func unionGroups(sets ...[][]string) [][]string {
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

	for _, set := range sets {
		for _, comp := range set {
			for _, id := range comp {
				find(id)
			}
			for i := 1; i < len(comp); i++ {
				union(comp[0], comp[i])
			}
		}
	}

	byRoot := map[string][]string{}
	for id := range parent {
		r := find(id)
		byRoot[r] = append(byRoot[r], id)
	}
	var out [][]string
	for _, members := range byRoot {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func groupSize(members []string, byID map[string]model.Change) int {
	total := 0
	for _, id := range members {
		total += byID[id].Size()
	}
	return total
}

var interfacePathMarkers = []string{"/model/", "/models/", "/types/", "/interfaces/"}

func isInterfaceLike(file string) bool {
	lower := strings.ToLower(file)
	for _, m := range interfacePathMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	base := strings.ToLower(path.Base(file))
	return strings.HasSuffix(base, "interface.go") || strings.HasSuffix(base, ".d.ts") ||
		strings.HasPrefix(base, "result.") || strings.Contains(base, "result.")
}

func splitOversizeGroup(members []string, byID map[string]model.Change, maxLines, idx int) []model.AtomicGroup {
	total := groupSize(members, byID)
	if total <= maxLines || len(members) <= 1 {
		return []model.AtomicGroup{{ID: groupID(idx, 0), Changes: members, Reason: groupReason(members, byID)}}
	}

	byDir := map[string][]string{}
	for _, id := range members {
		dir := path.Dir(byID[id].File)
		byDir[dir] = append(byDir[dir], id)
	}
	if len(byDir) > 1 {
		var dirs []string
		for d := range byDir {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		var out []model.AtomicGroup
		for i, d := range dirs {
			out = append(out, model.AtomicGroup{
				ID:      groupID(idx, i),
				Changes: byDir[d],
				Reason:  "split from oversize atomic group by directory " + d,
			})
		}
		return out
	}

	var ifaceMembers, implMembers []string
	for _, id := range members {
		if isInterfaceLike(byID[id].File) {
			ifaceMembers = append(ifaceMembers, id)
		} else {
			implMembers = append(implMembers, id)
		}
	}
	if len(ifaceMembers) > 0 && len(implMembers) > 0 {
		return []model.AtomicGroup{
			{ID: groupID(idx, 0), Changes: ifaceMembers, Reason: "split from oversize atomic group: interfaces/models"},
			{ID: groupID(idx, 1), Changes: implMembers, Reason: "split from oversize atomic group: implementations"},
		}
	}

	return []model.AtomicGroup{{ID: groupID(idx, 0), Changes: members, Reason: groupReason(members, byID)}}
}

func groupReason(members []string, byID map[string]model.Change) string {
	if len(members) <= 1 {
		return "singleton"
	}
	return "circular or strength-1.0 dependency among " + strings.Join(members, ", ")
}

func groupID(i, j int) string {
	return "atomic-" + strconv.Itoa(i) + "-" + strconv.Itoa(j)
}

// TopoSort returns an order of the graph's nodes in which every Target
// precedes its dependent Source, via Kahn's algorithm run over the reversed
// (preds) adjacency — a Dependency edge points from a dependent to its
// prerequisite, the opposite of the "precedes" direction Kahn's algorithm
// expects. On cycle detection, it iteratively finds SCCs with |V| > 1 and
// removes one edge per cycle (the edge into the component's first member
// from the last member that has one) until the graph is a DAG, then sorts
// the resulting DAG.
func (g *Graph) TopoSort() ([]string, []model.Dependency) {
	precedes := cloneSuccs(g.preds) // precedes[target] = dependents of target
	var removedEdges []model.Dependency

	for {
		order, ok := kahn(g.nodes, precedes)
		if ok {
			return order, removedEdges
		}
		sccs := tarjanSCC(g.nodes, precedes)
		if len(sccs) == 0 {
			// Pathological: Kahn failed but no SCC found (should not happen);
			// return original order rather than loop forever.
			return append([]string(nil), g.nodes...), removedEdges
		}
		comp := sccs[0]
		sort.Strings(comp)
		// comp holds nodes in the "precedes" (reversed-dependency) graph;
		// break the cycle by removing one precedes-edge, i.e. one
		// dependent-on-prerequisite Dependency in the original direction.
		source := comp[0]
		var target string
		for _, t := range comp {
			for _, s := range precedes[t] {
				if s == source {
					target = t
				}
			}
		}
		precedes[target] = removeOne(precedes[target], source)
		removedEdges = append(removedEdges, model.Dependency{Source: source, Target: target, Reason: "cycle-broken by topological sort"})
	}
}

func cloneSuccs(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func removeOne(list []string, target string) []string {
	for i, v := range list {
		if v == target {
			return append(append([]string(nil), list[:i]...), list[i+1:]...)
		}
	}
	return list
}

func kahn(nodes []string, succs map[string][]string) ([]string, bool) {
	indeg := map[string]int{}
	for _, n := range nodes {
		indeg[n] = 0
	}
	for _, outs := range succs {
		for _, t := range outs {
			indeg[t]++
		}
	}
	var queue []string
	for _, n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		var newlyZero []string
		for _, t := range succs[n] {
			indeg[t]--
			if indeg[t] == 0 {
				newlyZero = append(newlyZero, t)
			}
		}
		sort.Strings(newlyZero)
		queue = append(queue, newlyZero...)
	}
	return order, len(order) == len(nodes)
}

// Stats summarizes graph structure.
type Stats struct {
	NumNodes   int
	NumEdges   int
	NumSCCs    int
	AvgInDeg   float64
	AvgOutDeg  float64
	IsDAG      bool
}

// Statistics computes summary statistics for the graph.
func (g *Graph) Statistics() Stats {
	numEdges := 0
	for _, e := range g.edges {
		numEdges += len(e)
	}
	n := len(g.nodes)
	stats := Stats{NumNodes: n, NumEdges: numEdges, NumSCCs: len(g.SCCs())}
	if n > 0 {
		stats.AvgInDeg = float64(numEdges) / float64(n)
		stats.AvgOutDeg = float64(numEdges) / float64(n)
	}
	_, ok := kahn(g.nodes, g.succs)
	stats.IsDAG = ok
	return stats
}
