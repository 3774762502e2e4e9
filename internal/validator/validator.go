// Package validator checks that the external commands patchsplit shells out
// to (git) are actually on PATH before a run starts, so a missing dependency
// surfaces as a clear message instead of a mid-pipeline exec error.
package validator

import (
	"context"
	"errors"

	"github.com/patchsplit/patchsplit/internal/executor"
)

// Validator checks for required external command dependencies.
type Validator struct {
	executor executor.CommandExecutor
}

// New creates a Validator using the given command executor.
func New(exec executor.CommandExecutor) *Validator {
	return &Validator{executor: exec}
}

// CheckDependencies verifies git is available. patchsplit's core pipeline
// never shells out itself, but vcs.Collaborator runs `git diff --cached` for
// the working-tree case, ValidateCommitReachable shells out to `git
// merge-base`, and apply_patches.sh shells out to `git apply`.
func (v *Validator) CheckDependencies(ctx context.Context) error {
	if _, err := v.executor.Execute(ctx, "git", "--version"); err != nil {
		return errors.New("git command not found")
	}
	return nil
}
