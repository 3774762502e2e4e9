package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/maruel/genai"
	"github.com/maruel/genai/providers"
	"github.com/spf13/cobra"

	"github.com/patchsplit/patchsplit"
	"github.com/patchsplit/patchsplit/internal/config"
	"github.com/patchsplit/patchsplit/internal/depanalyze"
	"github.com/patchsplit/patchsplit/internal/diffparse"
	"github.com/patchsplit/patchsplit/internal/enhancer"
	"github.com/patchsplit/patchsplit/internal/executor"
	"github.com/patchsplit/patchsplit/internal/output"
	"github.com/patchsplit/patchsplit/internal/vcs"
)

var (
	baseBranch   string
	headBranch   string
	commitRef    string
	patchFile    string
	untracked    []string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a diff into an ordered sequence of patches",
	Long: `split sources a unified diff from one of: the staged working tree,
a branch-to-branch comparison (--base/--head), a commit vs. its first
parent (--commit), or a literal patch file (--patch-file), then runs it
through the splitting pipeline and writes the result. A commit is always
diffed against its first parent; diffing it against another ref is not
supported.`,
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringVar(&baseBranch, "base", "", "base branch for a branch-to-branch diff")
	splitCmd.Flags().StringVar(&headBranch, "head", "", "head branch for a branch-to-branch diff")
	splitCmd.Flags().StringVar(&commitRef, "commit", "", "commit to diff against its parent")
	splitCmd.Flags().StringVar(&patchFile, "patch-file", "", "path to a literal unified diff file")
	splitCmd.Flags().StringSliceVar(&untracked, "untracked", nil, "untracked files to include as synthetic added-file diffs")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := currentLogger()

	repoPath, err := resolveRepoPath()
	if err != nil {
		return err
	}

	diffText, err := sourceDiff(ctx, repoPath)
	if err != nil {
		return err
	}
	if diffText == "" {
		return fmt.Errorf("no diff content to split")
	}

	opts := patchsplit.Options{
		TargetPatchSize: targetSize,
		Logger:          log,
	}
	if maxPatches > 0 {
		m := maxPatches
		opts.MaxPatches = &m
	}
	if !noLLM {
		client, err := buildEnhancer(ctx)
		if err != nil {
			log.Warn("enhancer unavailable, continuing without it: %v", err)
		} else {
			opts.Enhancer = client
		}
	}

	result, err := patchsplit.SplitChanges(ctx, diffText, opts)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		log.Warn("%s", w)
	}

	if dryRun {
		fmt.Printf("Analysis complete: %d patches, %d total changed lines, reviewability %.2f\n",
			result.Metrics.NumPatches, result.Metrics.TotalChangedLines, result.Metrics.ReviewabilityScore)
		return nil
	}

	runDir := fmt.Sprintf("%s/run_%s", outputDir, time.Now().Format("20060102_150405"))
	changes, _ := diffparse.New(log).Parse(diffText)
	changes = depanalyze.MergeSymbols(depanalyze.New().Extract(changes))

	written, err := output.Write(result, changes, output.Options{Dir: runDir, Repository: repoPath})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d files to %s\n", len(written), runDir)
	return nil
}

func resolveRepoPath() (string, error) {
	if repoFlag == "" {
		return ".", nil
	}
	if configFile == "" {
		return "", fmt.Errorf("--repo requires --config")
	}
	set, err := config.Load(configFile)
	if err != nil {
		return "", err
	}
	path, ok := set.Resolve(repoFlag)
	if !ok {
		return "", fmt.Errorf("unknown repository %q in %s", repoFlag, configFile)
	}
	return path, nil
}

func sourceDiff(ctx context.Context, repoPath string) (string, error) {
	exec := executor.NewRealCommandExecutor()
	collab := vcs.New(repoPath, exec)

	switch {
	case patchFile != "":
		data, err := os.ReadFile(patchFile)
		if err != nil {
			return "", fmt.Errorf("failed to read patch file: %w", err)
		}
		return string(data), nil
	case commitRef != "":
		if headBranch != "" {
			if err := collab.ValidateCommitReachable(ctx, commitRef, headBranch); err != nil {
				return "", err
			}
		}
		return collab.ExtractCommitDiff(ctx, commitRef)
	case baseBranch != "" && headBranch != "":
		return collab.ExtractBranchDiff(ctx, baseBranch, headBranch)
	default:
		diff, err := collab.ExtractWorkingTreeDiff(ctx)
		if err != nil {
			return "", err
		}
		diff += syntheticUntrackedDiff(untracked)
		return diff, nil
	}
}

// syntheticUntrackedDiff renders explicitly named untracked files as
// synthetic whole-file "add" diffs, per the --untracked flag's contract.
func syntheticUntrackedDiff(files []string) string {
	var out string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		out += "diff --git a/" + f + " b/" + f + "\n"
		out += "new file mode 100644\n"
		out += "--- /dev/null\n"
		out += "+++ b/" + f + "\n"
		lines := splitLines(string(data))
		out += fmt.Sprintf("@@ -0,0 +1,%d @@\n", len(lines))
		for _, l := range lines {
			out += "+" + l + "\n"
		}
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// buildEnhancer resolves a genai.Provider by name via the providers
// registry, mirroring the corpus's newProvider helper: --provider selects
// the backend (e.g. "openai", "anthropic"; see github.com/maruel/genai for
// valid names), --model picks the model or falls back to genai.ModelCheap,
// and --api-key/--api-base are passed through as provider-specific env
// overrides the factory itself is responsible for reading.
func buildEnhancer(ctx context.Context) (enhancer.Client, error) {
	if providerName == "" {
		return nil, fmt.Errorf("no --provider configured")
	}
	if apiKey != "" {
		os.Setenv(strings.ToUpper(providerName)+"_API_KEY", apiKey)
	}
	if apiBase != "" {
		os.Setenv(strings.ToUpper(providerName)+"_BASE_URL", apiBase)
	}
	cfg, ok := providers.All[providerName]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
	m := genai.ProviderOptionModel(model)
	if m == "" {
		m = genai.ModelCheap
	}
	provider, err := cfg.Factory(ctx, m)
	if err != nil {
		return nil, err
	}
	return enhancer.New(provider), nil
}
