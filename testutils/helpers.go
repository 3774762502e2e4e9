package testutils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestRepo wraps a temporary, git-initialized repository so patchsplit's
// vcs and integration tests can stage real diffs instead of hand-written
// fixture text.
type TestRepo struct {
	t       *testing.T
	Path    string
	Repo    *git.Repository
	cleanup func()
}

// NewTestRepo creates a new test repository with proper initialization.
func NewTestRepo(t *testing.T, prefix string) *TestRepo {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	repo, err := git.PlainInit(tmpDir, false)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to initialize git repository: %v", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to get config: %v", err)
	}

	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if err := repo.SetConfig(cfg); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to set config: %v", err)
	}

	return &TestRepo{
		t:    t,
		Path: tmpDir,
		Repo: repo,
		cleanup: func() {
			os.RemoveAll(tmpDir)
		},
	}
}

// Cleanup removes the test repository.
func (tr *TestRepo) Cleanup() {
	if tr.cleanup != nil {
		tr.cleanup()
	}
}

// Chdir changes to the repository directory and returns a cleanup function
// that restores the previous working directory.
func (tr *TestRepo) Chdir() func() {
	tr.t.Helper()

	originalDir, err := os.Getwd()
	if err != nil {
		tr.t.Fatalf("Failed to get current dir: %v", err)
	}
	if err := os.Chdir(tr.Path); err != nil {
		tr.t.Fatalf("Failed to change to temp dir: %v", err)
	}

	return func() {
		os.Chdir(originalDir)
	}
}

// RunCommand executes a command in the repository directory.
func (tr *TestRepo) RunCommand(command string, args ...string) (string, error) {
	tr.t.Helper()
	cmd := exec.Command(command, args...)
	cmd.Dir = tr.Path
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// RunCommandOrFail executes a command and fails the test if it errors.
func (tr *TestRepo) RunCommandOrFail(command string, args ...string) string {
	tr.t.Helper()
	output, err := tr.RunCommand(command, args...)
	if err != nil {
		tr.t.Fatalf("Command failed: %s %s\nOutput: %s\nError: %v",
			command, strings.Join(args, " "), output, err)
	}
	return output
}

// CreateFile creates a file with the given content.
func (tr *TestRepo) CreateFile(filename, content string) {
	tr.t.Helper()
	path := filepath.Join(tr.Path, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tr.t.Fatalf("Failed to create file %s: %v", filename, err)
	}
}

// ModifyFile modifies an existing file with new content.
func (tr *TestRepo) ModifyFile(filename, newContent string) {
	tr.t.Helper()
	path := filepath.Join(tr.Path, filename)
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		tr.t.Fatalf("Failed to modify file %s: %v", filename, err)
	}
}

// CommitChanges commits all changes with the given message.
func (tr *TestRepo) CommitChanges(message string) {
	tr.t.Helper()
	w, err := tr.Repo.Worktree()
	if err != nil {
		tr.t.Fatalf("Failed to get worktree: %v", err)
	}

	if _, err := w.Add("."); err != nil {
		tr.t.Fatalf("Failed to add files: %v", err)
	}

	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		tr.t.Fatalf("Failed to commit: %v", err)
	}
}

// CreateAndCommitFile creates a file and commits it in one operation.
func (tr *TestRepo) CreateAndCommitFile(filename, content, message string) {
	tr.t.Helper()
	tr.CreateFile(filename, content)
	tr.CommitChanges(message)
}

// GetStagedFiles returns a list of staged files.
func (tr *TestRepo) GetStagedFiles() []string {
	tr.t.Helper()
	output, err := tr.RunCommand("git", "diff", "--cached", "--name-only")
	if err != nil {
		tr.t.Fatalf("Failed to get staged files: %v", err)
	}

	files := strings.Split(strings.TrimSpace(output), "\n")
	if len(files) == 1 && files[0] == "" {
		return []string{}
	}

	sort.Strings(files)
	return files
}

// GetCommitCount returns the number of commits in the repository.
func (tr *TestRepo) GetCommitCount() int {
	tr.t.Helper()
	output, err := tr.RunCommand("git", "rev-list", "--count", "HEAD")
	if err != nil {
		tr.t.Fatalf("Failed to get commit count: %v", err)
	}

	count := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(output), "%d", &count); err != nil {
		tr.t.Fatalf("Failed to parse commit count: %v", err)
	}
	return count
}

// GeneratePatch writes the working-tree-vs-HEAD diff (staged and unstaged
// changes) to a file under the repo,
// matching the literal-patch-file entry point split's --patch-file flag
// reads from.
func (tr *TestRepo) GeneratePatch(filename string) {
	tr.t.Helper()
	output, err := tr.RunCommand("git", "diff", "HEAD")
	if err != nil {
		tr.t.Fatalf("Failed to generate patch: %v", err)
	}

	patchPath := filepath.Join(tr.Path, filename)
	if err := os.WriteFile(patchPath, []byte(output), 0644); err != nil {
		tr.t.Fatalf("Failed to write patch file: %v", err)
	}
}

// CreateManyFunctionsFile creates a source file with numFuncs independent Go
// functions, committing the initial version and then modifying every other
// function, so a test can stage a diff wide enough to exercise the splitter
// across many hunks instead of one or two.
func (tr *TestRepo) CreateManyFunctionsFile(filename string, numFuncs int) {
	tr.t.Helper()

	var initial strings.Builder
	initial.WriteString("package sample\n\n")
	for i := 0; i < numFuncs; i++ {
		initial.WriteString(generateFunction(i, "initial"))
	}
	tr.CreateFile(filename, initial.String())
	tr.CommitChanges("initial many-function file")

	var modified strings.Builder
	modified.WriteString("package sample\n\n")
	for i := 0; i < numFuncs; i++ {
		if i%2 == 0 {
			modified.WriteString(generateFunction(i, "modified"))
		} else {
			modified.WriteString(generateFunction(i, "initial"))
		}
	}
	tr.ModifyFile(filename, modified.String())
}

func generateFunction(index int, version string) string {
	return fmt.Sprintf(`func Fn%d() int {
	// %s version
	result := 0
	for i := 0; i < 10; i++ {
		result += i * %d
	}
	return result
}

`, index, version, index)
}
