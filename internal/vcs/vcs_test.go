package vcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/executor"
	"github.com/patchsplit/patchsplit/testutils"
)

func TestExtractWorkingTreeDiff_ReturnsStagedContent(t *testing.T) {
	repo := testutils.NewTestRepo(t, "vcs-worktree")
	defer repo.Cleanup()

	repo.CreateAndCommitFile("a.go", "package a\n", "initial commit")
	repo.ModifyFile("a.go", "package a\n\nfunc Widget() {}\n")
	repo.RunCommandOrFail("git", "add", "a.go")

	c := New(repo.Path, executor.NewRealCommandExecutor())
	diff, err := c.ExtractWorkingTreeDiff(context.Background())
	require.NoError(t, err)
	testutils.AssertDiffContains(t, diff, "func Widget", "a.go")
}

func TestExtractBranchDiff_BetweenTwoCommits(t *testing.T) {
	repo := testutils.NewTestRepo(t, "vcs-branch")
	defer repo.Cleanup()

	repo.CreateAndCommitFile("a.go", "package a\n", "base")
	base := repo.RunCommandOrFail("git", "rev-parse", "HEAD")
	repo.ModifyFile("a.go", "package a\n\nfunc Widget() {}\n")
	repo.CommitChanges("add widget")
	head := repo.RunCommandOrFail("git", "rev-parse", "HEAD")

	c := New(repo.Path, executor.NewRealCommandExecutor())
	diff, err := c.ExtractBranchDiff(context.Background(), trim(base), trim(head))
	require.NoError(t, err)
	assert.Contains(t, diff, "func Widget")
}

func TestExtractCommitDiff_RootCommitDiffsAgainstEmptyTree(t *testing.T) {
	repo := testutils.NewTestRepo(t, "vcs-root")
	defer repo.Cleanup()

	repo.CreateAndCommitFile("a.go", "package a\n\nfunc Root() {}\n", "initial commit")
	head := repo.RunCommandOrFail("git", "rev-parse", "HEAD")

	c := New(repo.Path, executor.NewRealCommandExecutor())
	diff, err := c.ExtractCommitDiff(context.Background(), trim(head))
	require.NoError(t, err)
	assert.Contains(t, diff, "func Root")
}

func TestValidateCommitReachable_FailsForUnrelatedCommit(t *testing.T) {
	repo := testutils.NewTestRepo(t, "vcs-ancestry")
	defer repo.Cleanup()

	repo.CreateAndCommitFile("a.go", "package a\n", "base")
	repo.RunCommandOrFail("git", "checkout", "-b", "feature")
	repo.CreateAndCommitFile("b.go", "package a\n\nfunc B() {}\n", "feature commit")
	featureHead := repo.RunCommandOrFail("git", "rev-parse", "HEAD")
	repo.RunCommandOrFail("git", "checkout", "master")

	c := New(repo.Path, executor.NewRealCommandExecutor())
	err := c.ValidateCommitReachable(context.Background(), trim(featureHead), "master")
	assert.Error(t, err, "feature-branch-only commit is not an ancestor of master")
}

func trim(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
