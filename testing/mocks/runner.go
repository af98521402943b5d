// Package mocks provides hand-written test doubles shared across packages.
package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/homeboy-cli/homeboy/runner"
)

// MockRunner implements runner.Runner for testing. Rules are matched in
// order against the rendered command line; RunFunc, when set, wins.
type MockRunner struct {
	RunFunc func(ctx context.Context, cmd runner.Command) (*runner.Result, error)

	mu    sync.Mutex
	rules []rule
	Calls []runner.Command
}

type rule struct {
	contains string
	result   runner.Result
	err      error
}

// Ensure MockRunner implements runner.Runner
var _ runner.Runner = (*MockRunner)(nil)

// On registers a canned result for commands whose rendered form contains s.
func (m *MockRunner) On(s string, result runner.Result) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: s, result: result})
	return m
}

// OnError registers an execution error for commands containing s.
func (m *MockRunner) OnError(s string, err error) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: s, err: err})
	return m
}

func (m *MockRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, cmd)
	rules := append([]rule(nil), m.rules...)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}

	line := cmd.String()
	for _, r := range rules {
		if strings.Contains(line, r.contains) {
			if r.err != nil {
				return &runner.Result{ExitCode: -1}, r.err
			}
			res := r.result
			return &res, nil
		}
	}
	return &runner.Result{}, nil
}

// CommandLines returns every recorded call rendered as a string.
func (m *MockRunner) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.String())
	}
	return out
}

// Called reports whether any recorded command line contains s.
func (m *MockRunner) Called(s string) bool {
	for _, line := range m.CommandLines() {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
