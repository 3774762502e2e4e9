package executor

import (
	"context"
	"io"
)

// CommandExecutor defines the interface for executing external commands.
// patchsplit only shells out for the handful of git plumbing operations
// go-git does not expose ergonomically (internal/vcs's `git diff --cached`
// for the staged working tree and its merge-base ancestry check); all
// context arguments support cancellation from the pipeline's caller.
type CommandExecutor interface {
	// Execute runs a command and returns its output.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)

	// ExecuteWithStdin runs a command with stdin input and returns its output.
	ExecuteWithStdin(ctx context.Context, name string, stdin io.Reader, args ...string) ([]byte, error)

	// ExecuteInDir runs a command in a specific directory and returns its output.
	ExecuteInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}
