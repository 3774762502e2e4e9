package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/patchsplit/patchsplit/internal/plog"
)

// RealCommandExecutor shells out via os/exec.
type RealCommandExecutor struct {
	log *plog.Logger
}

// NewRealCommandExecutor creates a new real executor.
func NewRealCommandExecutor() *RealCommandExecutor {
	return &RealCommandExecutor{log: plog.NewFromEnv()}
}

// Execute implements CommandExecutor.Execute.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		r.log.Error("command failed: %s %s", name, strings.Join(args, " "))
		if stderr.Len() > 0 {
			r.log.Error("stderr: %s", stderr.String())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitErr.Stderr = stderr.Bytes()
		}
		return nil, err
	}
	return output, nil
}

// ExecuteWithStdin implements CommandExecutor.ExecuteWithStdin.
func (r *RealCommandExecutor) ExecuteWithStdin(ctx context.Context, name string, stdin io.Reader, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		r.log.Error("command failed: %s %s (with stdin)", name, strings.Join(args, " "))
		if stderr.Len() > 0 {
			r.log.Error("stderr: %s", stderr.String())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitErr.Stderr = stderr.Bytes()
		}
		return nil, err
	}
	return output, nil
}

// ExecuteInDir implements CommandExecutor.ExecuteInDir.
func (r *RealCommandExecutor) ExecuteInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		r.log.Error("command failed in %s: %s %s", dir, name, strings.Join(args, " "))
		if stderr.Len() > 0 {
			r.log.Error("stderr: %s", stderr.String())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitErr.Stderr = stderr.Bytes()
		}
		return nil, err
	}
	return output, nil
}

// WrapGitError wraps a git command error with a user-friendly message based
// on stderr content.
func WrapGitError(err error, commandDesc string) error {
	if err == nil {
		return nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Errorf("failed to execute %s: %w", commandDesc, err)
	}

	stderr := string(exitErr.Stderr)

	if strings.Contains(stderr, "fatal: not a git repository") ||
		strings.Contains(stderr, "Not a git repository") {
		return fmt.Errorf("not in a git repository. Please run this command from within a git repository")
	}
	if strings.Contains(stderr, "git: command not found") ||
		strings.Contains(stderr, "executable file not found") {
		return fmt.Errorf("git command not found. Please install git")
	}
	if strings.Contains(stderr, "fatal: ambiguous argument 'HEAD'") {
		return fmt.Errorf("no commits yet in this repository. Please make an initial commit first")
	}
	if stderr != "" {
		return fmt.Errorf("failed to execute %s: %w\nstderr: %s", commandDesc, err, strings.TrimSpace(stderr))
	}
	return fmt.Errorf("failed to execute %s: %w", commandDesc, err)
}
