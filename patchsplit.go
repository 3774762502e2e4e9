// Package patchsplit partitions a single unified diff into an ordered
// sequence of smaller, dependency-respecting, size-targeted patches. It is
// the module's public entry point; every pipeline stage lives in an
// internal/ package and is orchestrated here in strict stage order.
package patchsplit

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/patchsplit/patchsplit/internal/depanalyze"
	"github.com/patchsplit/patchsplit/internal/depgraph"
	"github.com/patchsplit/patchsplit/internal/diffparse"
	"github.com/patchsplit/patchsplit/internal/digest"
	"github.com/patchsplit/patchsplit/internal/enhancer"
	"github.com/patchsplit/patchsplit/internal/model"
	"github.com/patchsplit/patchsplit/internal/perr"
	"github.com/patchsplit/patchsplit/internal/plog"
	"github.com/patchsplit/patchsplit/internal/semgroup"
	"github.com/patchsplit/patchsplit/internal/splitter"
	"github.com/patchsplit/patchsplit/internal/validate"
)

// Options configures a split run.
type Options struct {
	// TargetPatchSize is the goal size in changed lines; defaults to 200.
	TargetPatchSize int
	// MaxPatches, if set, is a patch-count limit that is reported, not
	// enforced: a run producing more patches adds a warning to the result,
	// and the patches are not merged down to the limit.
	MaxPatches *int
	// CodebaseContext is free-form text handed to the enhancer, if any, to
	// ground its naming and grouping suggestions in the wider repository.
	CodebaseContext string
	// AdditionalContext is free-form text describing the change's intent,
	// also handed to the enhancer.
	AdditionalContext string
	// Enhancer is an optional LLM client; nil disables all enhancement.
	Enhancer enhancer.Client
	// Logger overrides the default logger; nil uses plog.NewFromEnv().
	Logger *plog.Logger
}

// SplitChanges runs the full pipeline over a unified diff and returns the
// resulting PatchSplitResult. It never returns a partially-visible result:
// on success the coverage and ordering invariants of the data model hold,
// or the result's Warnings explicitly name the violating patch/change pair.
func SplitChanges(ctx context.Context, diffText string, opts Options) (*model.PatchSplitResult, error) {
	log := opts.Logger
	if log == nil {
		log = plog.NewFromEnv()
	}
	targetSize := opts.TargetPatchSize
	if targetSize <= 0 {
		targetSize = 200
	}

	if diffText == "" {
		return nil, perr.NewInputError("no diff content to split", nil)
	}

	parser := diffparse.New(log)
	changes, parseWarnings := parser.Parse(diffText)
	if len(changes) == 0 {
		return nil, perr.NewInputError("diff contained no hunks", nil)
	}

	inputDigests := make([]digest.Digest, 0, len(changes))
	for _, c := range changes {
		inputDigests = append(inputDigests, digest.ForHunk(c.RawHunk))
	}

	analyzer := depanalyze.New()
	extractions := analyzer.Extract(changes)
	deps := analyzer.Analyze(extractions)

	changeIDs := make([]string, 0, len(changes))
	for _, c := range changes {
		changeIDs = append(changeIDs, c.ID)
	}

	grouper := semgroup.New()
	semanticGroups := grouper.Group(changes, extractions)

	warnings := append([]string(nil), parseWarnings...)

	if opts.Enhancer != nil {
		enhancedDeps, enhancedGroups, enhWarnings := runEnhancerFanOut(ctx, opts.Enhancer, changes, deps, semanticGroups)
		deps = append(deps, enhancedDeps...)
		semanticGroups = append(semanticGroups, enhancedGroups...)
		warnings = append(warnings, enhWarnings...)
	}

	graph := depgraph.New(changeIDs, deps)
	atomicGroups := depgraph.AtomicGroups(changes, graph, targetSize*2)

	split := splitter.New(targetSize, opts.MaxPatches)
	patches, cycleWarnings := split.Split(changes, atomicGroups, semanticGroups, graph)
	warnings = append(warnings, cycleWarnings...)

	if opts.MaxPatches != nil && len(patches) > *opts.MaxPatches {
		warnings = append(warnings, fmt.Sprintf("produced %d patches, exceeding the requested max of %d", len(patches), *opts.MaxPatches))
	}

	validator := validate.New(targetSize)
	issues := validator.Check(changes, patches, graph)
	for _, issue := range issues {
		warnings = append(warnings, issue.Kind+": "+issue.Message)
	}
	metrics := validator.Metrics(changes, patches, graph)

	outputDigests := make([]digest.Digest, 0)
	for _, p := range patches {
		byID := byIDMap(changes)
		for _, id := range p.Changes {
			outputDigests = append(outputDigests, digest.ForHunk(byID[id].RawHunk))
		}
	}
	report := digest.Reconcile(inputDigests, outputDigests)
	if !report.OK {
		warnings = append(warnings, fmt.Sprintf("hunk integrity check failed: %d missing, %d spurious", len(report.Missing), len(report.Spurious)))
	}

	mentalModel := ""
	if opts.Enhancer != nil {
		if summary, err := opts.Enhancer.Complete(ctx, buildMentalModelPrompt(opts, patches)); err == nil {
			mentalModel = summary
		} else {
			warnings = append(warnings, "enhancer mental-model summary failed: "+err.Error())
		}
	}

	result := &model.PatchSplitResult{
		Patches:        patches,
		TopologicalIDs: topoIDs(patches),
		AtomicGroups:   atomicGroups,
		SemanticGroups: semanticGroups,
		Warnings:       warnings,
		Metrics:        metrics,
		MentalModel:    mentalModel,
		PartialResult:  len(issues) > 0 || !report.OK,
	}
	return result, nil
}

func byIDMap(changes []model.Change) map[string]model.Change {
	m := make(map[string]model.Change, len(changes))
	for _, c := range changes {
		m[c.ID] = c
	}
	return m
}

func topoIDs(patches []model.Patch) []int {
	ids := make([]int, len(patches))
	for i, p := range patches {
		ids[i] = p.ID
	}
	return ids
}

// runEnhancerFanOut runs the two structured enhancer operations concurrently
// via errgroup, bounded to the single enhancement stage so the
// stage-sequential core pipeline is never parallelized. A failure in any
// one operation is recorded as a warning and leaves the others' results
// intact (and the overall pre-enhancement state untouched on total
// failure), per spec.md §5/§7. Each goroutine only ever writes its own
// dedicated result/warning variable, so nothing here is shared mutable
// state and no mutex is needed.
func runEnhancerFanOut(ctx context.Context, client enhancer.Client, changes []model.Change, deps []model.Dependency, groups []model.SemanticGroup) ([]model.Dependency, []model.SemanticGroup, []string) {
	var extraDeps []model.Dependency
	var extraGroups []model.SemanticGroup
	var depsWarning, groupsWarning string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d, err := client.AnalyzeDependencies(gctx, changes, deps)
		if err != nil {
			depsWarning = "enhancer dependency analysis failed: " + err.Error()
			return nil
		}
		extraDeps = d
		return nil
	})

	g.Go(func() error {
		sg, err := client.IdentifySemanticGroups(gctx, changes, groups)
		if err != nil {
			groupsWarning = "enhancer semantic grouping failed: " + err.Error()
			return nil
		}
		extraGroups = sg
		return nil
	})

	_ = g.Wait()

	var warnings []string
	if depsWarning != "" {
		warnings = append(warnings, depsWarning)
	}
	if groupsWarning != "" {
		warnings = append(warnings, groupsWarning)
	}
	return extraDeps, extraGroups, warnings
}

func buildMentalModelPrompt(opts Options, patches []model.Patch) string {
	prompt := "Summarize, in two or three sentences, the overall intent of this change given its patch breakdown."
	if opts.AdditionalContext != "" {
		prompt += "\n\nContext: " + opts.AdditionalContext
	}
	if opts.CodebaseContext != "" {
		prompt += "\n\nCodebase: " + opts.CodebaseContext
	}
	prompt += "\n\nPatches:\n"
	for _, p := range patches {
		prompt += "- " + p.Name + ": " + p.Description + "\n"
	}
	return prompt
}
