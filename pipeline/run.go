package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/build"
	"github.com/homeboy-cli/homeboy/capability"
	"github.com/homeboy-cli/homeboy/changelog"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/git"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/repository"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/shell"
	"github.com/homeboy-cli/homeboy/version"
)

// Skip reasons recorded on step results.
const (
	ReasonDryRun         = "dry run"
	ReasonCleanWorktree  = "clean worktree"
	ReasonPreviousFailed = "previous step failed"
	ReasonNothingToRun   = "nothing to run"
	missingPrefix        = "missing: "
)

// StepResult is what happened to one step of a run.
type StepResult struct {
	ID         string              `json:"id"`
	Type       capability.StepType `json:"type"`
	Status     domain.StepStatus   `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	DurationMS int64               `json:"duration_ms"`
	Stdout     string              `json:"stdout,omitempty"`
	Stderr     string              `json:"stderr,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Error      *apperror.Error     `json:"error,omitempty"`
}

// RunResult is the record of one release run.
type RunResult struct {
	ComponentID string                 `json:"component_id"`
	DryRun      bool                   `json:"dry_run"`
	Success     bool                   `json:"success"`
	Steps       []*StepResult          `json:"steps"`
	Context     *domain.ReleaseContext `json:"context"`
}

// Step returns the result of the step with the given id.
func (r *RunResult) Step(id string) (*StepResult, bool) {
	for _, s := range r.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Outcome pairs the plan with the run that followed it.
type Outcome struct {
	Plan *Plan      `json:"plan"`
	Run  *RunResult `json:"run"`
}

// Progress is called with every step result as it is recorded.
type Progress func(*StepResult)

// Engine runs release plans.
type Engine struct {
	Planner
	Runner   runner.Runner
	Builder  *build.Builder
	App      *config.AppConfig
	History  repository.RunRepository
	Progress Progress
	Now      func() time.Time
}

// ChangelogLabels resolves the pending-section labels of c against the
// app-wide defaults.
func ChangelogLabels(app *config.AppConfig, c *domain.Component) changelog.Labels {
	if app == nil {
		app = config.DefaultAppConfig()
	}
	return changelog.LabelsFor(c, changelog.Labels{
		Label:   app.Changelog.NextSectionLabel,
		Aliases: app.Changelog.NextSectionAliases,
	})
}

// Run plans t and executes the ready steps in order. Missing steps are
// recorded as skipped and disabled steps are left out. The first failing
// step that does not continue on error stops the run; its error is
// returned alongside the outcome.
func (e *Engine) Run(ctx context.Context, t Target, opts Options) (*Outcome, error) {
	c, resolver := e.resolve(t, opts)
	plan := buildPlan(c, resolver, opts)
	if !plan.Enabled {
		s, _ := plan.Step(string(capability.StepVersion))
		err := apperror.InvalidArgument("component",
			fmt.Sprintf("component '%s' cannot be released: %s", c.ID, strings.Join(s.Missing, "; ")), nil)
		for _, h := range plan.Hints {
			err.WithHint(h)
		}
		return &Outcome{Plan: plan}, err
	}

	x := &execution{
		engine:    e,
		component: c,
		project:   t.Project,
		resolver:  resolver,
		opts:      opts,
		rc:        domain.NewReleaseContext(),
		git:       git.New(e.Runner, c.LocalPath),
		skip:      skipSet(append(append([]string{}, c.ReleaseSettings().Skip...), opts.Skip...)).keys(),
	}
	result := &RunResult{ComponentID: c.ID, DryRun: opts.DryRun, Steps: []*StepResult{}, Context: x.rc}
	record := domain.NewRun(domain.RunKindRelease, c.ID)
	record.DryRun = opts.DryRun
	if t.Project != nil {
		record.ProjectID = t.Project.ID
	}

	slog.Info("Starting release", "component_id", c.ID, "bump", opts.Bump, "dry_run", opts.DryRun)

	var failure error
	for _, step := range plan.Steps {
		var sr *StepResult
		switch {
		case step.Status == StatusDisabled:
			continue
		case step.Status == StatusMissing:
			sr = skipped(step, missingPrefix+strings.Join(step.Missing, "; "))
		case failure != nil:
			sr = skipped(step, ReasonPreviousFailed)
		case opts.DryRun && mutating(step.Type):
			sr = skipped(step, ReasonDryRun)
		default:
			sr = x.execute(ctx, step)
			if sr.Status == domain.StepStatusFailed && !step.ContinueOnError {
				failure = sr.Error
			}
		}

		result.Steps = append(result.Steps, sr)
		record.Steps = append(record.Steps, domain.RunStep{
			Name:       sr.ID,
			Status:     sr.Status,
			Reason:     sr.Reason,
			DurationMS: sr.DurationMS,
		})
		if e.Progress != nil {
			e.Progress(sr)
		}
	}

	result.Success = failure == nil
	record.Version = x.rc.NewVersion()
	record.Finish(result.Success, failure)
	repository.Record(e.History, record)

	return &Outcome{Plan: plan, Run: result}, failure
}

// mutating steps only run outside dry runs; version computes without writing.
func mutating(st capability.StepType) bool {
	return st != capability.StepVersion
}

func skipped(step *Step, reason string) *StepResult {
	return &StepResult{ID: step.ID, Type: step.Type, Status: domain.StepStatusSkipped, Reason: reason}
}

// execution is the state of one run.
type execution struct {
	engine    *Engine
	component *domain.Component
	project   *domain.Project
	resolver  *capability.Resolver
	opts      Options
	rc        *domain.ReleaseContext
	git       *git.Client
	skip      []string
	// written are the files the version step changed, relative to the
	// component's local path.
	written []string
}

func (x *execution) execute(ctx context.Context, step *Step) *StepResult {
	started := time.Now()
	sr := &StepResult{ID: step.ID, Type: step.Type}
	err := x.dispatch(ctx, step, sr)
	sr.DurationMS = time.Since(started).Milliseconds()

	if err != nil {
		sr.Status = domain.StepStatusFailed
		sr.Error = apperror.As(err)
		sr.Reason = sr.Error.Message
		slog.Error("Service operation failed",
			"layer", "pipeline",
			"operation", step.ID,
			"component_id", x.component.ID,
			"error", err)
		return sr
	}
	if sr.Status == "" {
		sr.Status = domain.StepStatusOK
	}
	slog.Debug("Release step finished", "component_id", x.component.ID, "step", step.ID, "status", sr.Status, "duration_ms", sr.DurationMS)
	return sr
}

func (x *execution) dispatch(ctx context.Context, step *Step, sr *StepResult) error {
	settings := x.component.ReleaseSettings()
	switch step.Type {
	case capability.StepVersion:
		return x.version(ctx, sr)
	case capability.StepGitCommit:
		return x.commit(ctx, sr)
	case capability.StepGitTag:
		return x.tag(ctx, sr)
	case capability.StepBuild:
		return x.build(ctx, sr)
	case capability.StepPackage:
		return x.actions(ctx, sr, domain.ActionReleasePackage, "")
	case capability.StepGitPush:
		return x.push(ctx, sr)
	case capability.StepCleanup:
		return x.actions(ctx, sr, domain.ActionReleaseCleanup, settings.CleanupCommand)
	case capability.StepPostRelease:
		return x.actions(ctx, sr, domain.ActionReleasePostRelease, settings.PostReleaseCommand)
	}
	if target, ok := step.Type.PublishTarget(); ok {
		return x.publish(ctx, sr, target)
	}
	return apperror.Unexpected("unknown release step '%s'", step.ID)
}

func (x *execution) now() time.Time {
	if x.engine.Now != nil {
		return x.engine.Now()
	}
	return time.Now()
}

func (x *execution) app() *config.AppConfig {
	if x.engine.App != nil {
		return x.engine.App
	}
	return config.DefaultAppConfig()
}

// changelogEdit is the changelog part of the version step.
type changelogEdit struct {
	Path      string `json:"path"`
	Generated int    `json:"generated_entries"`
	*changelog.FinalizeResult
}

func (x *execution) version(ctx context.Context, sr *StepResult) error {
	lookup := func(ext string) (string, bool) {
		return modules.VersionPattern(ext, x.resolver.Enabled)
	}
	change, err := version.Prepare(x.component, lookup, x.opts.Bump)
	if err != nil {
		return err
	}

	edit, err := x.finalizeChangelog(ctx, change)
	if err != nil {
		return err
	}

	if err := x.rc.SetVersion(change.Old, change.New); err != nil {
		return apperror.Unexpected("%v", err)
	}
	if edit != nil && edit.Notes != "" {
		if err := x.rc.SetNotes(edit.Notes); err != nil {
			return apperror.Unexpected("%v", err)
		}
	}
	sr.Data = map[string]any{
		"old":       change.Old,
		"new":       change.New,
		"files":     change.Writes,
		"changelog": edit,
		"dry_run":   x.opts.DryRun,
	}

	if x.opts.DryRun {
		return nil
	}
	if edit != nil {
		if err := writePreservingMode(edit.Path, edit.Content); err != nil {
			return err
		}
		x.remember(edit.Path)
	}
	if err := change.Apply(); err != nil {
		return err
	}
	for _, w := range change.Writes {
		x.remember(w.Path)
	}
	slog.Info("Version bumped", "component_id", x.component.ID, "old", change.Old, "new", change.New)
	return nil
}

// finalizeChangelog renders the first changelog target with the pending
// section released as the new version. An empty pending section is first
// filled from the commits since the baseline.
func (x *execution) finalizeChangelog(ctx context.Context, change *version.Change) (*changelogEdit, error) {
	if len(x.component.ChangelogTargets) == 0 {
		return nil, nil
	}
	path := domain.ResolvePath(x.component.LocalPath, x.component.ChangelogTargets[0].File)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.IO("read", path, err)
	}
	content := string(data)
	labels := ChangelogLabels(x.engine.App, x.component)
	policy := x.app().RefactorPolicyFor(x.project)
	edit := &changelogEdit{Path: path}

	pending, ok := changelog.Parse(content).Pending(labels)
	if (!ok || pending.EntryCount() == 0) && x.resolver.WorkTree {
		baseline, err := x.git.DetectBaseline(ctx, change.Old)
		if err != nil {
			return nil, err
		}
		commits, err := x.git.CommitsSince(ctx, baseline.Reference)
		if err != nil {
			return nil, err
		}
		if entries := changelog.EntriesFromCommits(commits, policy); len(entries) > 0 {
			content, edit.Generated, err = changelog.AddEntries(content, labels, entries)
			if err != nil {
				return nil, err
			}
		}
	}

	edit.FinalizeResult = changelog.Finalize(content, labels, change.New, x.now(), policy)
	if !edit.Finalized {
		return nil, apperror.InvalidArgument("changelog",
			fmt.Sprintf("no entries in the '%s' section of %s", labels.Label, path), nil).
			WithHint("Add one with: homeboy changelog add " + x.component.ID + " <message>")
	}
	return edit, nil
}

func writePreservingMode(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fileutil.WriteAtomic(path, []byte(content), mode); err != nil {
		return apperror.IO("write", path, err)
	}
	return nil
}

func (x *execution) remember(path string) {
	if rel, err := filepath.Rel(x.component.LocalPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	x.written = append(x.written, path)
}

func (x *execution) commit(ctx context.Context, sr *StepResult) error {
	changes, err := x.git.Status(ctx)
	if err != nil {
		return err
	}
	if !changes.HasChanges || len(x.written) == 0 {
		sr.Status, sr.Reason = domain.StepStatusSkipped, ReasonCleanWorktree
		return nil
	}
	if err := x.git.Add(ctx, x.written...); err != nil {
		return err
	}

	message := strings.TrimSpace(x.component.ReleaseSettings().CommitMessage)
	if message == "" {
		message = "Release " + x.rc.NewVersion()
	}
	if err := x.git.Commit(ctx, message); err != nil {
		return err
	}
	sr.Data = map[string]any{"message": message, "files": x.written}
	return nil
}

func (x *execution) tag(ctx context.Context, sr *StepResult) error {
	if x.rc.NewVersion() == "" {
		return apperror.Unexpected("git.tag ran before the version step")
	}
	tag := git.VersionTag(x.rc.NewVersion())
	exists, err := x.git.TagExists(ctx, tag)
	if err != nil {
		return err
	}
	if exists {
		return apperror.InvalidArgument("tag", fmt.Sprintf("tag '%s' already exists", tag), nil).
			WithHint("Bump to a version that has not been released")
	}
	if err := x.git.Tag(ctx, tag, x.rc.Notes); err != nil {
		return err
	}
	if err := x.rc.SetTag(tag); err != nil {
		return apperror.Unexpected("%v", err)
	}
	sr.Data = map[string]string{"tag": tag}
	return nil
}

func (x *execution) build(ctx context.Context, sr *StepResult) error {
	env := modules.MergeEnv(x.execContext(nil, sr.ID).Env(), modules.ReleaseEnv(x.rc))
	res, err := x.engine.Builder.Build(ctx, x.component, x.resolver.Enabled, env)
	if res != nil && res.Output != nil {
		sr.Stdout, sr.Stderr = res.Output.Stdout, res.Output.Stderr
	}
	if err != nil {
		return err
	}
	if res.Artifact != "" {
		x.rc.AddArtifact(domain.Artifact{Path: res.Artifact})
	}
	sr.Data = map[string]any{"command": res.Command, "artifact": res.Artifact}
	return nil
}

func (x *execution) push(ctx context.Context, sr *StepResult) error {
	remote := strings.TrimSpace(x.component.ReleaseSettings().Remote)
	if remote == "" {
		remote = git.DefaultRemote
	}
	ok, err := x.git.HasRemote(ctx, remote)
	if err != nil {
		return err
	}
	if !ok {
		sr.Status, sr.Reason = domain.StepStatusSkipped, fmt.Sprintf("no remote '%s'", remote)
		return nil
	}
	branch, err := x.git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	refs := []string{branch}
	if x.rc.Tag != "" {
		refs = append(refs, x.rc.Tag)
	}
	if err := x.git.Push(ctx, remote, refs...); err != nil {
		return err
	}
	sr.Data = map[string]any{"remote": remote, "refs": refs}
	return nil
}

func (x *execution) publish(ctx context.Context, sr *StepResult, target string) error {
	m, ok := x.resolver.Module(target)
	if !ok {
		return apperror.Unexpected("publish target '%s' is not installed", target)
	}
	action, ok := m.Action(domain.ActionReleasePublish)
	if !ok {
		return apperror.Unexpected("module '%s' has no %s action", target, domain.ActionReleasePublish)
	}
	return x.runCommand(ctx, sr, m, action.Command)
}

// actions runs the component's own command for a step followed by every
// enabled module action with actionID.
func (x *execution) actions(ctx context.Context, sr *StepResult, actionID, componentCommand string) error {
	ran := false
	if strings.TrimSpace(componentCommand) != "" {
		if err := x.runCommand(ctx, sr, nil, componentCommand); err != nil {
			return err
		}
		ran = true
	}
	for _, ma := range x.resolver.Actions(actionID) {
		if err := x.runCommand(ctx, sr, ma.Module, ma.Action.Command); err != nil {
			return err
		}
		ran = true
	}
	if !ran {
		sr.Status, sr.Reason = domain.StepStatusSkipped, ReasonNothingToRun
	}
	return nil
}

func (x *execution) execContext(m *domain.Manifest, step string) modules.ExecContext {
	return modules.ExecContext{
		Module:    m,
		Project:   x.project,
		Component: x.component,
		Step:      step,
		Skip:      x.skip,
	}
}

// runCommand runs a release command locally in the component's tree with
// the exec context and release fields in its environment.
func (x *execution) runCommand(ctx context.Context, sr *StepResult, m *domain.Manifest, command string) error {
	exec := x.execContext(m, sr.ID)
	vars := shell.Vars{shell.VarComponentID: x.component.ID}
	if x.project != nil {
		vars[shell.VarProjectID] = x.project.ID
	}
	if m != nil {
		settings, err := modules.SettingsFor(m, x.project, x.component)
		if err != nil {
			return err
		}
		exec.Settings = settings
		vars[shell.VarModulePath] = m.Path
	}

	rendered := shell.Render(command, vars.Quoted())
	cmd := runner.Shell(rendered)
	cmd.Dir = x.component.LocalPath
	cmd.Env = modules.MergeEnv(exec.Env(), modules.ReleaseEnv(x.rc))

	res, err := x.engine.Runner.Run(ctx, cmd)
	if err != nil {
		return apperror.Wrap(apperror.InternalIOError, err, "Failed to start release command").
			WithDetail("command", rendered)
	}
	sr.Stdout += res.Stdout
	sr.Stderr += res.Stderr
	if !res.Success() {
		return apperror.RemoteFailure(apperror.CommandFailure{
			Command:  rendered,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   "local",
		})
	}
	return nil
}
