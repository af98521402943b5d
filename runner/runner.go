// Package runner executes local subprocesses (git, ssh, scp, build scripts,
// module commands) and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env   map[string]string
	Stdin io.Reader
	// Interactive inherits stdin/stdout/stderr instead of capturing.
	Interactive bool
}

// Shell builds a `sh -c <script>` command.
func Shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

// String renders the command for logs and error details.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner runs commands. A non-zero exit is reported through Result.ExitCode,
// not as an error; errors mean the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// New returns the default process runner.
func New() *ExecRunner {
	return &ExecRunner{}
}

// Ensure ExecRunner implements Runner
var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), EnvList(c.Env)...)
	}

	slog.Debug("Executing command",
		"command", c.Name,
		"args", c.Args,
		"working_dir", c.Dir,
		"interactive", c.Interactive)

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdin = c.Stdin
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		slog.Debug("Command exited non-zero",
			"command", c.String(),
			"exit_code", result.ExitCode)
		return result, nil
	default:
		slog.Error("Service operation failed",
			"layer", "runner",
			"operation", "run_command",
			"command", c.String(),
			"error", err)
		return result, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}
}

// EnvList renders an env map as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
