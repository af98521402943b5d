package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/homeboy-cli/homeboy/runner"
)

// Upload is a recorded file or directory transfer.
type Upload struct {
	Local     string
	Remote    string
	Recursive bool
}

// MockRemote implements deploy.Remote for testing. Executed commands and
// uploads are recorded; funcs override the default success behaviour.
type MockRemote struct {
	ExecuteFunc    func(ctx context.Context, command string) (*runner.Result, error)
	UploadFileFunc func(ctx context.Context, local, remote string) error
	UploadDirFunc  func(ctx context.Context, local, remote string) error

	mu       sync.Mutex
	Commands []string
	Uploads  []Upload
}

func (m *MockRemote) Execute(ctx context.Context, command string) (*runner.Result, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, command)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, command)
	}
	return &runner.Result{}, nil
}

func (m *MockRemote) UploadFile(ctx context.Context, local, remote string) error {
	m.mu.Lock()
	m.Uploads = append(m.Uploads, Upload{Local: local, Remote: remote})
	m.mu.Unlock()

	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, local, remote)
	}
	return nil
}

func (m *MockRemote) UploadDir(ctx context.Context, local, remote string) error {
	m.mu.Lock()
	m.Uploads = append(m.Uploads, Upload{Local: local, Remote: remote, Recursive: true})
	m.mu.Unlock()

	if m.UploadDirFunc != nil {
		return m.UploadDirFunc(ctx, local, remote)
	}
	return nil
}

// Ran reports whether any executed command contains s.
func (m *MockRemote) Ran(s string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Commands {
		if strings.Contains(c, s) {
			return true
		}
	}
	return false
}
