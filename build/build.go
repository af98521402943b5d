// Package build runs a component's build on the workstation and locates
// the artifact it produced.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/shell"
)

// Source says where a build command came from.
type Source string

const (
	SourceComponent Source = "build_command"
	SourceModule    Source = "module"
)

// Command is a resolved build command.
type Command struct {
	Script   string           `json:"command"`
	Source   Source           `json:"source"`
	ModuleID string           `json:"module_id,omitempty"`
	Module   *domain.Manifest `json:"-"`
}

// ResolveCommand picks the explicit build_command, else the first enabled
// module whose build block matches the component.
func ResolveCommand(c *domain.Component, enabled []*domain.Manifest) (*Command, error) {
	if cmd := strings.TrimSpace(c.BuildCommand); cmd != "" {
		return &Command{Script: cmd, Source: SourceComponent}, nil
	}

	if m, script, ok := modules.MatchBuild(c, enabled); ok {
		cmd := "sh " + shell.QuotePath(script)
		if m.Build.CommandTemplate != "" {
			cmd = shell.Render(m.Build.CommandTemplate, shell.Vars{
				shell.VarScript:      shell.QuotePath(script),
				shell.VarModulePath:  shell.QuotePath(m.Path),
				shell.VarComponentID: shell.QuotePath(c.ID),
			})
		}
		return &Command{Script: cmd, Source: SourceModule, ModuleID: m.ID, Module: m}, nil
	}

	return nil, apperror.Newf(apperror.DeployBuildFailed, "Component '%s' has no build command", c.ID).
		WithDetail("component_id", c.ID).
		WithHint("Set build_command on the component or enable a module that provides a build script")
}

// Builder runs builds through a runner.
type Builder struct {
	Runner   runner.Runner
	DirMode  string
	FileMode string
}

// Result describes a finished build.
type Result struct {
	ComponentID string         `json:"component_id"`
	Command     *Command       `json:"command"`
	Output      *runner.Result `json:"output"`
	Artifact    string         `json:"artifact,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

// Build normalizes permissions under the component's local path, runs the
// resolved command there and resolves the artifact. env is added to the
// command's environment.
func (b *Builder) Build(ctx context.Context, c *domain.Component, enabled []*domain.Manifest, env map[string]string) (*Result, error) {
	if c.LocalPath == "" {
		return nil, apperror.Newf(apperror.ConfigMissingKey, "Component '%s' has no local_path", c.ID).
			WithDetail("component_id", c.ID)
	}
	cmd, err := ResolveCommand(c, enabled)
	if err != nil {
		return nil, err
	}

	b.NormalizePermissions(ctx, c.LocalPath)

	slog.Info("Building component", "component_id", c.ID, "command", cmd.Script, "source", cmd.Source)
	started := time.Now()
	rc := runner.Shell(cmd.Script)
	rc.Dir = c.LocalPath
	rc.Env = env
	out, err := b.Runner.Run(ctx, rc)
	if err != nil {
		return nil, apperror.Wrap(apperror.DeployBuildFailed, err, "Failed to start build").
			WithDetail("component_id", c.ID)
	}

	res := &Result{
		ComponentID: c.ID,
		Command:     cmd,
		Output:      out,
		DurationMS:  time.Since(started).Milliseconds(),
	}
	if !out.Success() {
		slog.Error("Service operation failed",
			"layer", "build",
			"operation", "build",
			"component_id", c.ID,
			"exit_code", out.ExitCode)
		return res, apperror.BuildFailed(apperror.CommandFailure{
			Command:  cmd.Script,
			ExitCode: out.ExitCode,
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			Target:   c.ID,
		})
	}

	if c.BuildArtifact != "" {
		artifact, err := ResolveArtifact(c)
		if err != nil {
			return res, err
		}
		res.Artifact = artifact
	}
	return res, nil
}

// NormalizePermissions chmods the tree under dir to the configured modes.
// Failures are ignored.
func (b *Builder) NormalizePermissions(ctx context.Context, dir string) {
	for _, script := range shell.ChmodCommands(dir, b.DirMode, b.FileMode) {
		if _, err := b.Runner.Run(ctx, runner.Shell(script)); err != nil {
			slog.Warn("Permission fix failed", "dir", dir, "error", err)
		}
	}
}

// HasGlob reports whether p contains glob metacharacters.
func HasGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// ResolveArtifact returns the absolute artifact path. A literal path must
// exist; a glob resolves to the most recently modified matching file.
func ResolveArtifact(c *domain.Component) (string, error) {
	if strings.TrimSpace(c.BuildArtifact) == "" {
		return "", apperror.Newf(apperror.ConfigMissingKey, "Component '%s' has no build_artifact", c.ID).
			WithDetail("component_id", c.ID)
	}
	p := domain.ResolvePath(c.LocalPath, c.BuildArtifact)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}

	if !HasGlob(p) {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return "", apperror.InvalidArgument("build_artifact", fmt.Sprintf("artifact not found: %s", p), nil)
		} else if err != nil {
			return "", apperror.IO("stat", p, err)
		}
		return p, nil
	}

	matches, err := filepath.Glob(p)
	if err != nil {
		return "", apperror.InvalidArgument("build_artifact", fmt.Sprintf("invalid pattern %s: %v", p, err), nil)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, candidate{path: m, modTime: info.ModTime()})
	}
	if len(files) == 0 {
		return "", apperror.InvalidArgument("build_artifact", fmt.Sprintf("no files match %s", p), matches)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path > files[j].path
	})
	return files[0].path, nil
}
