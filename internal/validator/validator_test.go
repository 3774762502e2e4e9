package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/patchsplit/patchsplit/internal/executor"
)

func TestValidator_CheckDependencies(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*executor.MockCommandExecutor)
		wantErr bool
		errMsg  string
	}{
		{
			name: "git available",
			setup: func(m *executor.MockCommandExecutor) {
				m.Commands["git [--version]"] = executor.MockResponse{
					Output: []byte("git version 2.39.0\n"),
				}
			},
			wantErr: false,
		},
		{
			name: "git not found",
			setup: func(m *executor.MockCommandExecutor) {
				m.Commands["git [--version]"] = executor.MockResponse{
					Error: errors.New("command not found: git"),
				}
			},
			wantErr: true,
			errMsg:  "git command not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := executor.NewMockCommandExecutor()
			tt.setup(mock)

			v := New(mock)
			err := v.CheckDependencies(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("CheckDependencies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && err.Error() != tt.errMsg {
				t.Errorf("CheckDependencies() error message = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}
