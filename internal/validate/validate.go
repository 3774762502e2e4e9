// Package validate checks a Patch sequence against the design spec's
// correctness taxonomy (coverage, no-duplication, ordering, apply
// simulation) and computes the quality metrics and optimizer suggestions
// used to report on split quality.
package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/patchsplit/patchsplit/internal/depgraph"
	"github.com/patchsplit/patchsplit/internal/model"
)

// Issue describes a single validation failure.
type Issue struct {
	Kind    string
	Message string
}

// Validator checks and scores a Patch sequence.
type Validator struct {
	TargetSize int
}

// New creates a Validator; targetSize sets the threshold Optimize uses to
// split oversize patches (the size_score curve does not depend on it).
func New(targetSize int) *Validator {
	if targetSize <= 0 {
		targetSize = 200
	}
	return &Validator{TargetSize: targetSize}
}

// Check runs the four correctness checks from spec §4.7 and returns any
// violations found.
func (v *Validator) Check(changes []model.Change, patches []model.Patch, g *depgraph.Graph) []Issue {
	var issues []Issue

	allIDs := map[string]bool{}
	for _, c := range changes {
		allIDs[c.ID] = true
	}

	seen := map[string]int{}
	for _, p := range patches {
		for _, id := range p.Changes {
			seen[id]++
		}
	}

	for id := range allIDs {
		if seen[id] == 0 {
			issues = append(issues, Issue{Kind: "coverage", Message: "change " + id + " missing from all patches"})
		}
	}
	for id, n := range seen {
		if !allIDs[id] {
			issues = append(issues, Issue{Kind: "coverage", Message: "patch references unknown change " + id})
		}
		if n > 1 {
			issues = append(issues, Issue{Kind: "no-duplication", Message: fmt.Sprintf("change %s appears in %d patches", id, n)})
		}
	}

	for _, p := range patches {
		for _, dep := range p.DependsOn {
			if dep >= p.ID {
				issues = append(issues, Issue{Kind: "ordering", Message: fmt.Sprintf("patch %d depends on non-earlier patch %d", p.ID, dep)})
			}
		}
	}

	owner := map[string]int{}
	for _, p := range patches {
		for _, id := range p.Changes {
			owner[id] = p.ID
		}
	}
	availableThrough := func(patchID int) map[string]bool {
		avail := map[string]bool{}
		for _, p := range patches {
			if p.ID <= patchID {
				for _, id := range p.Changes {
					avail[id] = true
				}
			}
		}
		return avail
	}
	for _, p := range patches {
		avail := availableThrough(p.ID)
		for _, id := range p.Changes {
			for _, pred := range g.Predecessors(id) {
				if !avail[pred] {
					issues = append(issues, Issue{Kind: "apply-simulation", Message: fmt.Sprintf("patch %d change %s depends on %s which is not available by this point", p.ID, id, pred)})
				}
			}
		}
	}

	return issues
}

// Metrics computes the quality metrics from spec §4.7.
func (v *Validator) Metrics(changes []model.Change, patches []model.Patch, g *depgraph.Graph) model.Metrics {
	m := model.Metrics{NumPatches: len(patches)}

	sizes := make([]int, len(patches))
	total := 0
	for i, p := range patches {
		sizes[i] = p.TotalLines
		total += p.TotalLines
	}
	for _, c := range changes {
		m.TotalChangedLines += c.Size()
	}

	if len(sizes) == 0 {
		return m
	}

	m.MinPatchSize = sizes[0]
	m.MaxPatchSize = sizes[0]
	for _, s := range sizes {
		if s < m.MinPatchSize {
			m.MinPatchSize = s
		}
		if s > m.MaxPatchSize {
			m.MaxPatchSize = s
		}
	}
	mean := float64(total) / float64(len(sizes))
	m.MeanPatchSize = mean

	variance := 0.0
	for _, s := range sizes {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(sizes))
	m.SizeVariance = variance

	stdev := math.Sqrt(variance)
	if mean > 0 {
		m.BalanceScore = math.Max(0, 1-stdev/mean)
	}

	for _, p := range patches {
		if len(p.Warnings) > 0 {
			m.PatchesWithWarnings++
		}
	}

	m.MaxChainDepth = maxChainDepth(patches)

	reviewSum := 0.0
	for _, p := range patches {
		reviewSum += reviewabilityScore(p)
	}
	m.ReviewabilityScore = reviewSum / float64(len(patches))

	m.Suggestions = suggestions(m, patches)

	return m
}

func sizeScore(size int) float64 {
	switch {
	case size < 10:
		return 0.1
	case size < 50:
		return 0.1 + (float64(size)-10)/40*0.9
	case size <= 200:
		return 1.0
	case size <= 500:
		return 1.0 - (float64(size)-200)/300*0.9
	default:
		return 0.1
	}
}

func reviewabilityScore(p model.Patch) float64 {
	fileCount := countFiles(p)
	size := sizeScore(p.TotalLines)
	fileScore := 1.0 / (1.0 + 0.2*float64(fileCount-1))
	warningScore := math.Max(0, 1-0.2*float64(len(p.Warnings)))
	return 0.5*size + 0.3*fileScore + 0.2*warningScore
}

func countFiles(p model.Patch) int {
	files := map[string]bool{}
	for _, id := range p.Changes {
		files[fileFromChangeID(id)] = true
	}
	if len(files) == 0 {
		return 1
	}
	return len(files)
}

func fileFromChangeID(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return id
}

func maxChainDepth(patches []model.Patch) int {
	depth := make(map[int]int, len(patches))
	byID := make(map[int]model.Patch, len(patches))
	for _, p := range patches {
		byID[p.ID] = p
	}
	ids := make([]int, 0, len(patches))
	for _, p := range patches {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)

	maxDepth := 0
	for _, id := range ids {
		p := byID[id]
		best := 0
		for _, dep := range p.DependsOn {
			if depth[dep]+1 > best {
				best = depth[dep] + 1
			}
		}
		depth[id] = best
		if best > maxDepth {
			maxDepth = best
		}
	}
	return maxDepth
}

func suggestions(m model.Metrics, patches []model.Patch) []string {
	var out []string
	if m.BalanceScore < 0.5 {
		out = append(out, "patch sizes are unbalanced; consider a larger target size or manual regrouping")
	}
	if m.MaxPatchSize > 500 {
		out = append(out, "at least one patch exceeds 500 changed lines")
	}
	small := 0
	for _, p := range patches {
		if p.TotalLines < 10 {
			small++
		}
	}
	if len(patches) > 0 && float64(small)/float64(len(patches)) > 0.3 {
		out = append(out, "more than 30% of patches are very small; consider merging")
	}
	if m.MaxChainDepth > 5 {
		out = append(out, "dependency chain depth exceeds 5; reviewers will need to read many patches before the last one makes sense")
	}
	if m.ReviewabilityScore < 0.6 {
		out = append(out, "overall reviewability is low; patches may be too large, too scattered across files, or too warning-heavy")
	}
	return out
}

// Optimize splits any patch whose size exceeds 2x target and has more than
// one change, cutting at the midpoint and introducing a new prerequisite
// edge from the first half to the second. It operates after id assignment
// and therefore shifts subsequent ids; callers should re-run ordering if
// they need strictly monotonic ids afterward (the splitter's own pass
// already produces patches within budget in the common case, so this is a
// rarely exercised safety net).
func (v *Validator) Optimize(patches []model.Patch) []model.Patch {
	var out []model.Patch
	// tmpID uniquely identifies each emitted slot before renumbering, since
	// a split's two halves would otherwise both carry the original p.ID and
	// collide in renumberAfterSplit's old-id-to-new-index map.
	tmpID := 0
	nextTmpID := func() int {
		id := tmpID
		tmpID++
		return id
	}
	oldToTmp := map[int]int{}
	for _, p := range patches {
		if p.TotalLines > 2*v.TargetSize && len(p.Changes) > 1 {
			mid := len(p.Changes) / 2
			first := p
			first.Changes = append([]string(nil), p.Changes[:mid]...)
			first.TotalLines = sumSizes(first.Changes, p)
			first.Warnings = nil
			firstTmp := nextTmpID()
			first.ID = firstTmp

			second := p
			second.Changes = append([]string(nil), p.Changes[mid:]...)
			second.TotalLines = p.TotalLines - first.TotalLines
			second.DependsOn = remapDeps(p.DependsOn, oldToTmp)
			second.DependsOn = append(second.DependsOn, firstTmp)
			second.Warnings = nil
			second.ID = nextTmpID()

			oldToTmp[p.ID] = second.ID
			out = append(out, first, second)
			continue
		}
		p.DependsOn = remapDeps(p.DependsOn, oldToTmp)
		newTmp := nextTmpID()
		oldToTmp[p.ID] = newTmp
		p.ID = newTmp
		out = append(out, p)
	}
	return renumberAfterSplit(out)
}

// remapDeps rewrites a DependsOn list from original patch ids to the
// temporary ids already assigned to those patches earlier in the same
// Optimize pass; a dependency not yet seen (forward reference) is dropped,
// since Optimize only ever processes patches in their existing id order.
func remapDeps(deps []int, oldToTmp map[int]int) []int {
	var out []int
	for _, d := range deps {
		if tmp, ok := oldToTmp[d]; ok {
			out = append(out, tmp)
		}
	}
	return out
}

func sumSizes(ids []string, p model.Patch) int {
	if len(p.Changes) == 0 {
		return 0
	}
	perChange := p.TotalLines / len(p.Changes)
	return perChange * len(ids)
}

// renumberAfterSplit reassigns sequential ids after Optimize may have
// inserted new patches, preserving relative order and remapping DependsOn.
func renumberAfterSplit(patches []model.Patch) []model.Patch {
	oldToNew := map[int]int{}
	for i := range patches {
		oldToNew[patches[i].ID] = i
	}
	for i := range patches {
		patches[i].ID = i
	}
	for i := range patches {
		var deps []int
		for _, d := range patches[i].DependsOn {
			if nd, ok := oldToNew[d]; ok {
				deps = append(deps, nd)
			}
		}
		sort.Ints(deps)
		patches[i].DependsOn = deps
	}
	return patches
}
