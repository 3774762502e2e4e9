package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
)

func validateMockExecution(t *testing.T, mock *MockCommandExecutor, output []byte, err error,
	command string, args []string, wantOutput []byte, wantError bool, wantErrMsg string) {
	if (err != nil) != wantError {
		t.Errorf("Execute() error = %v, wantError %v", err, wantError)
		return
	}
	if wantError && wantErrMsg != "" {
		if err.Error() != wantErrMsg {
			t.Errorf("Execute() error message = %v, want %v", err.Error(), wantErrMsg)
		}
	}
	if !bytes.Equal(output, wantOutput) {
		t.Errorf("Execute() output = %v, want %v", output, wantOutput)
	}
	if len(mock.ExecutedCommands) != 1 {
		t.Errorf("Expected 1 executed command, got %d", len(mock.ExecutedCommands))
		return
	}
	executedCmd := mock.ExecutedCommands[0]
	if executedCmd.Name != command {
		t.Errorf("Executed command name = %v, want %v", executedCmd.Name, command)
	}
	if len(executedCmd.Args) != len(args) {
		t.Errorf("Executed command args length = %v, want %v", len(executedCmd.Args), len(args))
	}
	for i, arg := range args {
		if executedCmd.Args[i] != arg {
			t.Errorf("Executed command args[%d] = %v, want %v", i, executedCmd.Args[i], arg)
		}
	}
}

// TestMockCommandExecutorExecute exercises the subset of git subcommands
// patchsplit's vcs.Collaborator actually issues through Execute.
func TestMockCommandExecutorExecute(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*MockCommandExecutor)
		command    string
		args       []string
		wantOutput []byte
		wantError  bool
		wantErrMsg string
	}{
		{
			name: "mock merge-base ancestor check",
			setup: func(m *MockCommandExecutor) {
				m.Commands["git [merge-base --is-ancestor abc123 main]"] = MockResponse{
					Output: []byte(""),
					Error:  nil,
				}
			},
			command:    "git",
			args:       []string{"merge-base", "--is-ancestor", "abc123", "main"},
			wantOutput: []byte(""),
			wantError:  false,
		},
		{
			name: "mock merge-base unreachable commit",
			setup: func(m *MockCommandExecutor) {
				m.Commands["git [merge-base --is-ancestor deadbee main]"] = MockResponse{
					Output: nil,
					Error:  errors.New("commit not an ancestor"),
				}
			},
			command:    "git",
			args:       []string{"merge-base", "--is-ancestor", "deadbee", "main"},
			wantOutput: nil,
			wantError:  true,
			wantErrMsg: "commit not an ancestor",
		},
		{
			name: "mock unexpected command",
			setup: func(m *MockCommandExecutor) {
				// no commands registered
			},
			command:    "unexpected",
			args:       []string{"arg1", "arg2"},
			wantOutput: nil,
			wantError:  true,
			wantErrMsg: "unexpected command: unexpected [arg1 arg2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCommandExecutor()
			tt.setup(mock)

			output, err := mock.Execute(context.Background(), tt.command, tt.args...)
			validateMockExecution(t, mock, output, err, tt.command, tt.args,
				tt.wantOutput, tt.wantError, tt.wantErrMsg)
		})
	}
}

func TestMockCommandExecutorExecuteInDir(t *testing.T) {
	mock := NewMockCommandExecutor()
	mock.Commands["git [diff --cached --no-color]"] = MockResponse{
		Output: []byte("diff --git a/widget.go b/widget.go\n"),
		Error:  nil,
	}

	output, err := mock.ExecuteInDir(context.Background(), "/repo", "git", "diff", "--cached", "--no-color")
	if err != nil {
		t.Fatalf("ExecuteInDir() unexpected error: %v", err)
	}
	if !bytes.Equal(output, []byte("diff --git a/widget.go b/widget.go\n")) {
		t.Errorf("ExecuteInDir() output = %q, want the staged diff text", output)
	}
	if len(mock.ExecutedCommands) != 1 {
		t.Fatalf("Expected 1 executed command, got %d", len(mock.ExecutedCommands))
	}
	if mock.ExecutedCommands[0].Dir != "/repo" {
		t.Errorf("Executed command dir = %v, want /repo", mock.ExecutedCommands[0].Dir)
	}
}

func TestMockCommandExecutorExecuteInDirUnexpectedCommand(t *testing.T) {
	mock := NewMockCommandExecutor()
	_, err := mock.ExecuteInDir(context.Background(), "/repo", "git", "status")
	if err == nil {
		t.Fatal("expected an error for an unregistered command")
	}
	if !strings.Contains(err.Error(), "unexpected command in dir /repo") {
		t.Errorf("error = %v, want it to name the directory", err)
	}
}

func validateMockExecutionWithStdin(t *testing.T, mock *MockCommandExecutor, output []byte, err error,
	command string, args []string, wantOutput []byte, wantError bool, wantStdin []byte) {
	if (err != nil) != wantError {
		t.Errorf("ExecuteWithStdin() error = %v, wantError %v", err, wantError)
		return
	}
	if !bytes.Equal(output, wantOutput) {
		t.Errorf("ExecuteWithStdin() output = %v, want %v", output, wantOutput)
	}
	if len(mock.ExecutedCommands) != 1 {
		t.Errorf("Expected 1 executed command, got %d", len(mock.ExecutedCommands))
		return
	}
	executedCmd := mock.ExecutedCommands[0]
	if executedCmd.Name != command {
		t.Errorf("Executed command name = %v, want %v", executedCmd.Name, command)
	}
	if !bytes.Equal(executedCmd.Stdin, wantStdin) {
		t.Errorf("Executed command stdin = %v, want %v", executedCmd.Stdin, wantStdin)
	}
}

func TestMockCommandExecutorExecuteWithStdin(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*MockCommandExecutor)
		command    string
		stdin      io.Reader
		args       []string
		wantOutput []byte
		wantError  bool
		wantStdin  []byte
	}{
		{
			name: "mock command with empty stdin",
			setup: func(m *MockCommandExecutor) {
				m.Commands["cat []"] = MockResponse{
					Output: []byte(""),
					Error:  nil,
				}
			},
			command:    "cat",
			stdin:      strings.NewReader(""),
			args:       []string{},
			wantOutput: []byte(""),
			wantError:  false,
			wantStdin:  []byte(""),
		},
		{
			name: "mock command with nil stdin",
			setup: func(m *MockCommandExecutor) {
				m.Commands["test-command []"] = MockResponse{
					Output: []byte("result"),
					Error:  nil,
				}
			},
			command:    "test-command",
			stdin:      nil,
			args:       []string{},
			wantOutput: []byte("result"),
			wantError:  false,
			wantStdin:  nil,
		},
		{
			name: "mock unexpected command with stdin",
			setup: func(m *MockCommandExecutor) {
				// no commands registered
			},
			command:    "unknown",
			stdin:      strings.NewReader("input"),
			args:       []string{"arg"},
			wantOutput: nil,
			wantError:  true,
			wantStdin:  []byte("input"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCommandExecutor()
			tt.setup(mock)

			output, err := mock.ExecuteWithStdin(context.Background(), tt.command, tt.stdin, tt.args...)
			validateMockExecutionWithStdin(t, mock, output, err, tt.command, tt.args,
				tt.wantOutput, tt.wantError, tt.wantStdin)
		})
	}
}

func TestMockCommandExecutorExecutedCommandsTracking(t *testing.T) {
	mock := NewMockCommandExecutor()

	mock.Commands["git [merge-base --is-ancestor abc123 main]"] = MockResponse{Output: []byte(""), Error: nil}
	mock.Commands["git [diff --cached --no-color]"] = MockResponse{Output: []byte("diff"), Error: nil}

	_, err1 := mock.Execute(context.Background(), "git", "merge-base", "--is-ancestor", "abc123", "main")
	if err1 != nil {
		t.Fatalf("Unexpected error from Execute: %v", err1)
	}

	_, err2 := mock.ExecuteInDir(context.Background(), "/repo", "git", "diff", "--cached", "--no-color")
	if err2 != nil {
		t.Fatalf("Unexpected error from ExecuteInDir: %v", err2)
	}

	if len(mock.ExecutedCommands) != 2 {
		t.Errorf("Expected 2 executed commands, got %d", len(mock.ExecutedCommands))
	}
	if mock.ExecutedCommands[0].Name != "git" || mock.ExecutedCommands[0].Dir != "" {
		t.Errorf("First command = %+v, want a bare (non-dir) git command", mock.ExecutedCommands[0])
	}
	if mock.ExecutedCommands[1].Dir != "/repo" {
		t.Errorf("Second command dir = %v, want /repo", mock.ExecutedCommands[1].Dir)
	}
}

func TestRealCommandExecutorExecute(t *testing.T) {
	executor := NewRealCommandExecutor()

	tests := []struct {
		name       string
		command    string
		args       []string
		wantError  bool
		skipReason string
	}{
		{
			name:      "real successful git version command",
			command:   "git",
			args:      []string{"--version"},
			wantError: false,
		},
		{
			name:      "real nonexistent command",
			command:   "definitely-does-not-exist-command-12345",
			args:      []string{},
			wantError: true,
		},
		{
			name:       "real git merge-base with unreachable commit",
			command:    "git",
			args:       []string{"merge-base", "--is-ancestor", "0000000000000000000000000000000000000000", "HEAD"},
			wantError:  true,
			skipReason: "git",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.skipReason != "" {
				if _, err := exec.LookPath(tt.skipReason); err != nil {
					t.Skipf("%s not found in PATH", tt.skipReason)
				}
			}

			output, err := executor.Execute(context.Background(), tt.command, tt.args...)

			if (err != nil) != tt.wantError {
				t.Errorf("Execute() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(output) == 0 {
				t.Error("Expected non-empty output for successful command")
			}
			if tt.wantError && err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					if len(exitErr.Stderr) == 0 {
						t.Log("ExitError.Stderr is empty, which may be expected for some commands")
					}
				}
			}
		})
	}
}

func TestRealCommandExecutorExecuteInDir(t *testing.T) {
	executor := NewRealCommandExecutor()

	output, err := executor.ExecuteInDir(context.Background(), t.TempDir(), "git", "--version")
	if err != nil {
		t.Fatalf("ExecuteInDir() unexpected error: %v", err)
	}
	if len(output) == 0 {
		t.Error("Expected non-empty output from ExecuteInDir")
	}
}

func TestRealCommandExecutorExecuteWithStdin(t *testing.T) {
	executor := NewRealCommandExecutor()

	tests := []struct {
		name      string
		command   string
		stdin     io.Reader
		args      []string
		wantError bool
	}{
		{
			name:      "real cat command with stdin",
			command:   "cat",
			stdin:     strings.NewReader("patch content"),
			args:      []string{},
			wantError: false,
		},
		{
			name:      "real nonexistent command with stdin",
			command:   "definitely-does-not-exist",
			stdin:     strings.NewReader("input"),
			args:      []string{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := exec.LookPath(tt.command); err != nil && !tt.wantError {
				t.Skipf("%s not found in PATH", tt.command)
			}

			output, err := executor.ExecuteWithStdin(context.Background(), tt.command, tt.stdin, tt.args...)

			if (err != nil) != tt.wantError {
				t.Errorf("ExecuteWithStdin() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(output) == 0 {
				t.Error("Expected non-empty output for successful command")
			}
		})
	}
}

func TestRealCommandExecutorErrorOutput(t *testing.T) {
	executor := NewRealCommandExecutor()

	_, err := executor.Execute(context.Background(), "ls", "/definitely/does/not/exist/path/12345")
	if err == nil {
		t.Error("Expected error for non-existent path")
		return
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if len(exitErr.Stderr) == 0 {
			t.Error("ExitError.Stderr should contain error information")
		}
	} else {
		t.Logf("Error is not ExitError: %T", err)
	}
}

// TestWrapGitError exercises the error-translation paths that vcs.Collaborator
// relies on for the specific commands it issues: diff --cached and
// merge-base --is-ancestor.
func TestWrapGitError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		commandDesc string
		want        string
	}{
		{
			name:        "nil error",
			err:         nil,
			commandDesc: "git diff --cached",
			want:        "",
		},
		{
			name:        "not a git repository",
			err:         &exec.ExitError{Stderr: []byte("fatal: not a git repository (or any of the parent directories): .git")},
			commandDesc: "git diff --cached",
			want:        "not in a git repository. Please run this command from within a git repository",
		},
		{
			name:        "git command not found",
			err:         &exec.ExitError{Stderr: []byte("git: command not found")},
			commandDesc: "git merge-base --is-ancestor",
			want:        "git command not found. Please install git",
		},
		{
			name:        "ambiguous argument HEAD",
			err:         &exec.ExitError{Stderr: []byte("fatal: ambiguous argument 'HEAD': unknown revision or path not in the working tree.")},
			commandDesc: "git diff --cached",
			want:        "no commits yet in this repository. Please make an initial commit first",
		},
		{
			name:        "generic error with stderr",
			err:         &exec.ExitError{Stderr: []byte("fatal: bad revision 'deadbeef'")},
			commandDesc: "git merge-base --is-ancestor",
			want:        "failed to execute git merge-base --is-ancestor:",
		},
		{
			name:        "non-ExitError",
			err:         errors.New("generic error"),
			commandDesc: "git diff --cached",
			want:        "failed to execute git diff --cached: generic error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapGitError(tt.err, tt.commandDesc)

			if tt.want == "" {
				if got != nil {
					t.Errorf("WrapGitError() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Errorf("WrapGitError() = nil, want error containing %q", tt.want)
				return
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("WrapGitError() = %v, want error containing %q", got.Error(), tt.want)
			}
		})
	}
}
