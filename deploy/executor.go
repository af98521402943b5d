// Package deploy puts a built artifact in place on a remote server and
// drives project deploys component by component.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/shell"
)

// StagedPrefix names the temporary upload next to an extracted archive.
const StagedPrefix = ".homeboy-"

// Remote is the part of an SSH client a deploy needs.
type Remote interface {
	Execute(ctx context.Context, command string) (*runner.Result, error)
	UploadFile(ctx context.Context, local, remote string) error
	UploadDir(ctx context.Context, local, remote string) error
}

// Method says which path a deploy took.
type Method string

const (
	MethodOverride  Method = "override"
	MethodDirectory Method = "directory"
	MethodExtract   Method = "extract"
	MethodFile      Method = "file"
)

// Request describes one artifact to put in place.
type Request struct {
	ComponentID    string
	Artifact       string
	RemoteDir      string
	ExtractCommand string
	Verifications  []domain.DeployVerification
	Overrides      []domain.DeployOverride
	DirMode        string
	FileMode       string
}

// CommandRecord is a remote command a deploy ran.
type CommandRecord struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// Outcome reports what a deploy did.
type Outcome struct {
	ComponentID      string          `json:"component_id"`
	Artifact         string          `json:"artifact"`
	RemoteDir        string          `json:"remote_dir"`
	Method           Method          `json:"method"`
	UploadedTo       string          `json:"uploaded_to"`
	Commands         []CommandRecord `json:"commands"`
	Verified         bool            `json:"verified"`
	PermissionsFixed bool            `json:"permissions_fixed"`
}

// Executor runs deploys against one remote.
type Executor struct {
	Remote Remote
}

// MatchOverride returns the first override whose pattern matches dir.
func MatchOverride(overrides []domain.DeployOverride, dir string) (*domain.DeployOverride, bool) {
	for i := range overrides {
		if matchPath(overrides[i].PathPattern, dir) {
			return &overrides[i], true
		}
	}
	return nil, false
}

// MatchVerification returns the first verification whose pattern matches dir.
func MatchVerification(verifications []domain.DeployVerification, dir string) (*domain.DeployVerification, bool) {
	for i := range verifications {
		if matchPath(verifications[i].PathPattern, dir) {
			return &verifications[i], true
		}
	}
	return nil, false
}

func matchPath(pattern, dir string) bool {
	if pattern == "" {
		return false
	}
	ok, err := path.Match(pattern, dir)
	if err != nil {
		slog.Warn("Invalid deploy path pattern", "pattern", pattern, "error", err)
		return false
	}
	return ok
}

// Deploy uploads req.Artifact and installs it under req.RemoteDir.
func (e *Executor) Deploy(ctx context.Context, req Request) (*Outcome, error) {
	info, err := os.Stat(req.Artifact)
	if err != nil {
		return nil, apperror.InvalidArgument("artifact", fmt.Sprintf("artifact not readable: %s", req.Artifact), nil)
	}

	out := &Outcome{
		ComponentID: req.ComponentID,
		Artifact:    req.Artifact,
		RemoteDir:   req.RemoteDir,
		Commands:    []CommandRecord{},
	}
	slog.Info("Deploying component", "component_id", req.ComponentID, "artifact", req.Artifact, "remote_dir", req.RemoteDir)

	if o, ok := MatchOverride(req.Overrides, req.RemoteDir); ok {
		if err := e.deployOverride(ctx, req, o, info.IsDir(), out); err != nil {
			return out, err
		}
		if !o.SkipPermissionsFix {
			e.fixPermissions(ctx, req, out)
		}
		return out, nil
	}

	switch {
	case info.IsDir():
		err = e.deployDirectory(ctx, req, out)
	case strings.TrimSpace(req.ExtractCommand) != "":
		err = e.deployExtract(ctx, req, out)
	default:
		err = e.deployFile(ctx, req, out)
	}
	if err != nil {
		return out, err
	}

	if v, ok := MatchVerification(req.Verifications, req.RemoteDir); ok {
		if err := e.verify(ctx, req, v, out); err != nil {
			return out, err
		}
	}

	e.fixPermissions(ctx, req, out)
	return out, nil
}

func (e *Executor) deployOverride(ctx context.Context, req Request, o *domain.DeployOverride, isDir bool, out *Outcome) error {
	out.Method = MethodOverride
	staged := path.Join(o.StagingPath, filepath.Base(req.Artifact))

	if _, err := e.run(ctx, req, "mkdir -p "+shell.QuotePath(o.StagingPath), out); err != nil {
		return err
	}
	if err := e.upload(ctx, req.Artifact, staged, isDir); err != nil {
		return err
	}
	out.UploadedTo = staged

	vars := shell.Vars{
		shell.VarArtifact:  staged,
		shell.VarTargetDir: req.RemoteDir,
	}.Quoted()
	if _, err := e.run(ctx, req, shell.Render(o.InstallCommand, vars), out); err != nil {
		return err
	}
	if strings.TrimSpace(o.CleanupCommand) != "" {
		if _, err := e.run(ctx, req, shell.Render(o.CleanupCommand, vars), out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) deployDirectory(ctx context.Context, req Request, out *Outcome) error {
	out.Method = MethodDirectory
	if _, err := e.run(ctx, req, "mkdir -p "+shell.QuotePath(path.Dir(req.RemoteDir)), out); err != nil {
		return err
	}
	if err := e.Remote.UploadDir(ctx, req.Artifact, req.RemoteDir); err != nil {
		return err
	}
	out.UploadedTo = req.RemoteDir
	return nil
}

func (e *Executor) deployExtract(ctx context.Context, req Request, out *Outcome) error {
	out.Method = MethodExtract
	name := StagedPrefix + filepath.Base(req.Artifact)
	staged := path.Join(req.RemoteDir, name)

	if _, err := e.run(ctx, req, "mkdir -p "+shell.QuotePath(req.RemoteDir), out); err != nil {
		return err
	}
	if err := e.Remote.UploadFile(ctx, req.Artifact, staged); err != nil {
		return err
	}
	out.UploadedTo = staged

	extract := shell.Render(req.ExtractCommand, shell.Vars{
		shell.VarArtifact:  name,
		shell.VarTargetDir: req.RemoteDir,
	}.Quoted())
	if _, err := e.run(ctx, req, shell.InDir(req.RemoteDir, extract), out); err != nil {
		return err
	}

	if _, err := e.Remote.Execute(ctx, "rm -f "+shell.QuotePath(staged)); err != nil {
		slog.Warn("Failed to remove staged artifact", "component_id", req.ComponentID, "path", staged, "error", err)
	}
	return nil
}

func (e *Executor) deployFile(ctx context.Context, req Request, out *Outcome) error {
	out.Method = MethodFile
	target := path.Join(req.RemoteDir, filepath.Base(req.Artifact))
	if _, err := e.run(ctx, req, "mkdir -p "+shell.QuotePath(req.RemoteDir), out); err != nil {
		return err
	}
	if err := e.Remote.UploadFile(ctx, req.Artifact, target); err != nil {
		return err
	}
	out.UploadedTo = target
	return nil
}

func (e *Executor) verify(ctx context.Context, req Request, v *domain.DeployVerification, out *Outcome) error {
	command := shell.Render(v.VerifyCommand, shell.Vars{shell.VarTargetDir: req.RemoteDir}.Quoted())
	res, err := e.Remote.Execute(ctx, command)
	if err != nil {
		return err
	}
	out.Commands = append(out.Commands, record(command, res))

	if res.Success() && strings.TrimSpace(res.Stdout) != "" {
		out.Verified = true
		return nil
	}

	message := fmt.Sprintf("Deploy verification failed for %s", req.RemoteDir)
	if v.VerifyErrorMessage != "" {
		message = shell.Render(v.VerifyErrorMessage, shell.Vars{shell.VarTargetDir: req.RemoteDir})
	}
	slog.Error("Service operation failed",
		"layer", "deploy",
		"operation", "verify",
		"component_id", req.ComponentID,
		"remote_dir", req.RemoteDir,
		"exit_code", res.ExitCode)

	failure := apperror.RemoteFailure(apperror.CommandFailure{
		Command:  command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Target:   req.ComponentID,
	})
	failure.Message = message
	return failure
}

// fixPermissions chmods the deployed tree. Hosts may reject either pass.
func (e *Executor) fixPermissions(ctx context.Context, req Request, out *Outcome) {
	commands := shell.ChmodCommands(req.RemoteDir, req.DirMode, req.FileMode)
	if len(commands) == 0 {
		return
	}
	for _, command := range commands {
		res, err := e.Remote.Execute(ctx, command)
		if err != nil {
			slog.Warn("Remote permission fix failed", "component_id", req.ComponentID, "error", err)
			continue
		}
		out.Commands = append(out.Commands, record(command, res))
	}
	out.PermissionsFixed = true
}

func (e *Executor) upload(ctx context.Context, local, remote string, isDir bool) error {
	if isDir {
		return e.Remote.UploadDir(ctx, local, remote)
	}
	return e.Remote.UploadFile(ctx, local, remote)
}

// run executes command and turns a non-zero exit into remote.command_failed.
func (e *Executor) run(ctx context.Context, req Request, command string, out *Outcome) (*runner.Result, error) {
	res, err := e.Remote.Execute(ctx, command)
	if err != nil {
		return res, err
	}
	out.Commands = append(out.Commands, record(command, res))
	if !res.Success() {
		slog.Error("Service operation failed",
			"layer", "deploy",
			"operation", "remote_command",
			"component_id", req.ComponentID,
			"exit_code", res.ExitCode)
		return res, apperror.RemoteFailure(apperror.CommandFailure{
			Command:  command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   req.ComponentID,
		})
	}
	return res, nil
}

func record(command string, res *runner.Result) CommandRecord {
	return CommandRecord{Command: command, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
}
