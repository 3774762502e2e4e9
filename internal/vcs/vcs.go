// Package vcs is patchsplit's thin git collaborator: it extracts unified
// diff text from a working tree, a branch comparison, or a commit, and
// validates commit/branch reachability before a split runs. It satisfies
// the spec's "external, out of scope" VCS contract so the core pipeline
// never touches a repository directly.
package vcs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/patchsplit/patchsplit/internal/executor"
	"github.com/patchsplit/patchsplit/internal/perr"
)

// Collaborator extracts diffs and validates refs against a git repository.
type Collaborator struct {
	repoPath string
	exec     executor.CommandExecutor
}

// New creates a Collaborator rooted at repoPath ("." if empty).
func New(repoPath string, exec executor.CommandExecutor) *Collaborator {
	if repoPath == "" {
		repoPath = "."
	}
	if exec == nil {
		exec = executor.NewRealCommandExecutor()
	}
	return &Collaborator{repoPath: repoPath, exec: exec}
}

func (c *Collaborator) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return nil, perr.NewIOError("failed to open git repository at "+c.repoPath, err)
	}
	return repo, nil
}

// ExtractWorkingTreeDiff returns the unified diff of staged changes (index
// vs. HEAD), matching the "split whatever is currently staged" entry point
// of the CLI. The index-to-HEAD comparison is delegated to `git diff
// --cached`: go-git's Worktree.Status reports per-file state but not hunk
// text, so the plumbing command remains the pragmatic path here.
func (c *Collaborator) ExtractWorkingTreeDiff(ctx context.Context) (string, error) {
	out, err := c.exec.ExecuteInDir(ctx, c.repoPath, "git", "diff", "--cached", "--no-color")
	if err != nil {
		return "", perr.NewIOError("failed to extract working tree diff", executor.WrapGitError(err, "git diff --cached"))
	}
	return string(out), nil
}

// ExtractBranchDiff returns the unified diff between two branch tips via
// go-git's commit Patch API.
func (c *Collaborator) ExtractBranchDiff(ctx context.Context, base, head string) (string, error) {
	repo, err := c.open()
	if err != nil {
		return "", err
	}
	baseCommit, err := resolveCommit(repo, base)
	if err != nil {
		return "", perr.NewInputError("cannot resolve base branch "+base, err)
	}
	headCommit, err := resolveCommit(repo, head)
	if err != nil {
		return "", perr.NewInputError("cannot resolve head branch "+head, err)
	}
	return diffCommits(baseCommit, headCommit)
}

// ExtractCommitDiff returns the unified diff introduced by a single commit,
// against its first parent (or against the empty tree for a root commit).
func (c *Collaborator) ExtractCommitDiff(ctx context.Context, commitRef string) (string, error) {
	repo, err := c.open()
	if err != nil {
		return "", err
	}
	commit, err := resolveCommit(repo, commitRef)
	if err != nil {
		return "", perr.NewInputError("cannot resolve commit "+commitRef, err)
	}
	if commit.NumParents() == 0 {
		tree, err := commit.Tree()
		if err != nil {
			return "", perr.NewIOError("failed to read root commit tree", err)
		}
		changes, err := object.DiffTree(nil, tree)
		if err != nil {
			return "", perr.NewIOError("failed to diff root commit against empty tree", err)
		}
		patch, err := changes.Patch()
		if err != nil {
			return "", perr.NewIOError("failed to build patch for root commit", err)
		}
		var buf bytes.Buffer
		if err := patch.Encode(&buf); err != nil {
			return "", perr.NewIOError("failed to encode root commit diff", err)
		}
		return buf.String(), nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return "", perr.NewIOError("failed to resolve parent commit", err)
	}
	return diffCommits(parent, commit)
}

func diffCommits(from, to *object.Commit) (string, error) {
	patch, err := from.Patch(to)
	if err != nil {
		return "", perr.NewIOError("failed to compute diff between commits", err)
	}
	var buf bytes.Buffer
	if err := patch.Encode(&buf); err != nil {
		return "", perr.NewIOError("failed to encode diff", err)
	}
	return buf.String(), nil
}

func resolveCommit(repo *git.Repository, ref string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, err
	}
	return repo.CommitObject(*hash)
}

// ValidateCommitReachable checks that commit is an ancestor of branch,
// via `git merge-base --is-ancestor` — one of the handful of operations
// go-git does not expose as a single ergonomic call.
func (c *Collaborator) ValidateCommitReachable(ctx context.Context, commit, branch string) error {
	_, err := c.exec.ExecuteInDir(ctx, c.repoPath, "git", "merge-base", "--is-ancestor", commit, branch)
	if err != nil {
		return perr.NewInputError(fmt.Sprintf("commit %s is not reachable from branch %s", commit, branch), err)
	}
	return nil
}
