package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/patchsplit/patchsplit"
	"github.com/patchsplit/patchsplit/internal/depanalyze"
	"github.com/patchsplit/patchsplit/internal/diffparse"
	"github.com/patchsplit/patchsplit/internal/output"
)

var resplitTargetPatch string

var resplitCmd = &cobra.Command{
	Use:   "resplit <output-dir>",
	Short: "Re-partition a single previously-emitted patch file",
	Long: `resplit takes one NN_<name>.patch file from a previous split's output
directory and runs it back through the pipeline on its own, replacing it
with a finer-grained sequence while leaving every other patch in the
directory untouched. The combined hunk multiset across the directory is
unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runResplit,
}

func init() {
	resplitCmd.Flags().StringVar(&resplitTargetPatch, "patch", "", "name of the patch file within the output directory to re-split")
	_ = resplitCmd.MarkFlagRequired("patch")
	rootCmd.AddCommand(resplitCmd)
}

func runResplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dir := args[0]
	log := currentLogger()

	targetPath := filepath.Join(dir, resplitTargetPatch)
	data, err := os.ReadFile(targetPath)
	if err != nil {
		return fmt.Errorf("failed to read target patch %s: %w", targetPath, err)
	}

	opts := patchsplit.Options{TargetPatchSize: targetSize, Logger: log}
	if maxPatches > 0 {
		m := maxPatches
		opts.MaxPatches = &m
	}

	result, err := patchsplit.SplitChanges(ctx, string(data), opts)
	if err != nil {
		return fmt.Errorf("failed to resplit %s: %w", resplitTargetPatch, err)
	}
	for _, w := range result.Warnings {
		log.Warn("%s", w)
	}

	changes, _ := diffparse.New(log).Parse(string(data))
	changes = depanalyze.MergeSymbols(depanalyze.New().Extract(changes))

	subDir := filepath.Join(dir, "resplit_"+time.Now().Format("20060102_150405"))
	if _, err := output.Write(result, changes, output.Options{Dir: subDir}); err != nil {
		return err
	}

	if err := os.Remove(targetPath); err != nil {
		log.Warn("could not remove original patch file %s: %v", targetPath, err)
	}

	fmt.Printf("Re-split %s into %d patches under %s\n", resplitTargetPatch, len(result.Patches), subDir)
	return nil
}
