// Command patchsplit is the CLI front end for the patchsplit library: it
// sources a unified diff from a working tree, a branch comparison, a
// commit, or a literal patch file, runs the splitting pipeline, and writes
// the resulting patches to an output directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchsplit/patchsplit/internal/executor"
	"github.com/patchsplit/patchsplit/internal/plog"
	"github.com/patchsplit/patchsplit/internal/validator"
)

var (
	targetSize  int
	maxPatches  int
	noLLM       bool
	apiKey       string
	apiBase      string
	model        string
	providerName string
	dryRun      bool
	verbose     bool
	debug       bool
	outputDir   string
	repoFlag    string
	configFile  string
)

var rootCmd = &cobra.Command{
	Use:   "patchsplit",
	Short: "Split a large diff into an ordered sequence of reviewable patches",
	Long: `patchsplit partitions a unified diff into smaller, dependency-respecting,
size-targeted patches so a reviewer can work through a large change
incrementally instead of all at once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := validator.New(executor.NewRealCommandExecutor())
		if err := v.CheckDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("dependency check failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&targetSize, "target-size", 200, "target patch size in changed lines")
	rootCmd.PersistentFlags().IntVar(&maxPatches, "max-patches", 0, "patch count above which a warning is reported; patches are not merged to fit (0 = no limit)")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "disable the LLM enhancer")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "LLM provider API key")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "LLM provider API base URL")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "LLM model name")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "LLM provider name (see github.com/maruel/genai); empty disables the enhancer")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "stop after analysis; do not write output files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", ".", "root directory for output patches")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "named repository to resolve via the repositories config file")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the repositories config file")
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

func currentLogger() *plog.Logger {
	level := plog.ErrorLevel
	if verbose {
		level = plog.InfoLevel
	}
	if debug {
		level = plog.DebugLevel
	}
	return plog.New(level)
}

func main() {
	if err := Execute(); err != nil {
		os.Stderr.WriteString("patchsplit: " + err.Error() + "\n")
		os.Exit(1)
	}
}
