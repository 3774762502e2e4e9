// Package enhancer wraps an optional LLM provider used to augment the
// deterministic pipeline: proposing additional dependency edges the
// analyzer missed, suggesting extra semantic groups, reviewing a patch
// sequence for obviously-wrong splits, and writing human names and
// descriptions. Every operation is request/response and every result is
// revalidated by the caller; the core pipeline is correct without this
// package, per spec.md §5.
package enhancer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/maruel/genai"

	"github.com/patchsplit/patchsplit/internal/model"
	"github.com/patchsplit/patchsplit/internal/perr"
)

// Client is satisfied by any LLM-backed enhancer. Implementations must
// return quickly on ctx cancellation and must never block the pipeline's
// deterministic path on success.
type Client interface {
	AnalyzeDependencies(ctx context.Context, changes []model.Change, existing []model.Dependency) ([]model.Dependency, error)
	IdentifySemanticGroups(ctx context.Context, changes []model.Change, existing []model.SemanticGroup) ([]model.SemanticGroup, error)
	ValidatePatches(ctx context.Context, patches []model.Patch) ([]string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenaiClient implements Client over a github.com/maruel/genai Provider.
type GenaiClient struct {
	Provider genai.Provider
	Timeout  time.Duration
}

// New wraps a genai.Provider as a Client, defaulting the per-call timeout to
// 30 seconds, matching the corpus's commit-message generation helper.
func New(provider genai.Provider) *GenaiClient {
	return &GenaiClient{Provider: provider, Timeout: 30 * time.Second}
}

// Complete sends prompt as a single user message and returns the trimmed
// text response.
func (g *GenaiClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	res, err := g.Provider.GenSync(ctx, genai.Messages{genai.NewTextMessage(prompt)}, &genai.GenOptionText{MaxTokens: 1024})
	if err != nil {
		return "", perr.NewLLMError("enhancer completion failed", err)
	}
	return strings.TrimSpace(res.String()), nil
}

func (g *GenaiClient) timeout() time.Duration {
	if g.Timeout <= 0 {
		return 30 * time.Second
	}
	return g.Timeout
}

type dependencySuggestion struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Kind     string  `json:"kind"`
	Strength float64 `json:"strength"`
	Reason   string  `json:"reason"`
}

// AnalyzeDependencies asks the model to propose dependency edges the
// deterministic analyzer's qualified-name matching may have missed (e.g.
// dynamic dispatch, string-based lookups), then strictly revalidates every
// suggestion against the known change id set before returning it.
func (g *GenaiClient) AnalyzeDependencies(ctx context.Context, changes []model.Change, existing []model.Dependency) ([]model.Dependency, error) {
	known := knownIDs(changes)

	prompt := buildDependencyPrompt(changes, existing)
	raw, err := g.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var suggestions []dependencySuggestion
	if err := extractJSON(raw, &suggestions); err != nil {
		return nil, perr.NewLLMError("enhancer returned unparseable dependency suggestions", err)
	}

	var out []model.Dependency
	for _, s := range suggestions {
		if !known[s.Source] || !known[s.Target] || s.Source == s.Target {
			continue
		}
		if s.Source == "*" || s.Target == "*" {
			continue
		}
		kind := model.DependencyKind(s.Kind)
		switch kind {
		case model.DepDefinesUses, model.DepModifiesUses, model.DepImport, model.DepCallChain, model.DepTypeDependency:
		default:
			continue
		}
		strength := s.Strength
		if strength < 0 {
			strength = 0
		}
		if strength > 1 {
			strength = 1
		}
		out = append(out, model.Dependency{Source: s.Source, Target: s.Target, Kind: kind, Strength: strength, Reason: "llm: " + s.Reason})
	}
	return out, nil
}

type semanticGroupSuggestion struct {
	Name     string   `json:"name"`
	Changes  []string `json:"changes"`
	Cohesion float64  `json:"cohesion"`
}

// IdentifySemanticGroups asks the model to propose additional cohesion
// groups beyond the heuristic producers, revalidating change ids the same
// way AnalyzeDependencies does.
func (g *GenaiClient) IdentifySemanticGroups(ctx context.Context, changes []model.Change, existing []model.SemanticGroup) ([]model.SemanticGroup, error) {
	known := knownIDs(changes)

	prompt := buildSemanticGroupPrompt(changes, existing)
	raw, err := g.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var suggestions []semanticGroupSuggestion
	if err := extractJSON(raw, &suggestions); err != nil {
		return nil, perr.NewLLMError("enhancer returned unparseable semantic group suggestions", err)
	}

	var out []model.SemanticGroup
	for _, s := range suggestions {
		var filtered []string
		for _, id := range s.Changes {
			if known[id] {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) < 2 {
			continue
		}
		cohesion := s.Cohesion
		if cohesion <= 0 || cohesion > 1 {
			cohesion = 0.6
		}
		out = append(out, model.SemanticGroup{Name: s.Name, Changes: filtered, Cohesion: cohesion, Kind: "llm_suggested"})
	}
	return out, nil
}

// ValidatePatches asks the model to flag patches that look obviously wrong
// (a refactor split across files that clearly belong together, a patch
// whose name doesn't match its contents) and returns free-form warning
// strings; these are advisory only and never change the patch set.
func (g *GenaiClient) ValidatePatches(ctx context.Context, patches []model.Patch) ([]string, error) {
	prompt := buildValidationPrompt(patches)
	raw, err := g.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if err := extractJSON(raw, &warnings); err != nil {
		// Non-JSON review output is still useful as a single warning line.
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, nil
		}
		return []string{trimmed}, nil
	}
	return warnings, nil
}

func knownIDs(changes []model.Change) map[string]bool {
	known := make(map[string]bool, len(changes))
	for _, c := range changes {
		known[c.ID] = true
	}
	return known
}

// extractJSON tolerates a markdown-fenced response (```json ... ```) by
// stripping the fence before unmarshaling, the common shape LLM providers
// wrap structured output in.
func extractJSON(raw string, v interface{}) error {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	return json.Unmarshal([]byte(trimmed), v)
}

func buildDependencyPrompt(changes []model.Change, existing []model.Dependency) string {
	var b strings.Builder
	b.WriteString("You are reviewing a dependency graph built over diff hunks. ")
	b.WriteString("Given the following changes and already-known dependencies, propose any additional dependency edges, ")
	b.WriteString("as a JSON array of {source, target, kind, strength, reason}. Only reference the change ids given; never use wildcards.\n\n")
	b.WriteString("Changes:\n")
	for _, c := range changes {
		b.WriteString("- " + c.ID + " (" + string(c.Kind) + " in " + c.File + ")\n")
	}
	b.WriteString("\nKnown dependencies:\n")
	for _, d := range existing {
		b.WriteString("- " + d.Source + " -> " + d.Target + " (" + string(d.Kind) + ")\n")
	}
	return b.String()
}

func buildSemanticGroupPrompt(changes []model.Change, existing []model.SemanticGroup) string {
	var b strings.Builder
	b.WriteString("Propose additional semantic groupings of the following changes as a JSON array of ")
	b.WriteString("{name, changes, cohesion}. Only reference the change ids given.\n\nChanges:\n")
	for _, c := range changes {
		b.WriteString("- " + c.ID + "\n")
	}
	b.WriteString("\nExisting groups:\n")
	for _, g := range existing {
		b.WriteString("- " + g.Name + ": " + strings.Join(g.Changes, ", ") + "\n")
	}
	return b.String()
}

func buildValidationPrompt(patches []model.Patch) string {
	var b strings.Builder
	b.WriteString("Review this proposed patch sequence for reviewability problems. ")
	b.WriteString("Return a JSON array of short warning strings, or an empty array if it looks fine.\n\n")
	for _, p := range patches {
		b.WriteString("Patch ")
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(p.Changes, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
