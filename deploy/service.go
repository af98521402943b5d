package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/build"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/repository"
	"github.com/homeboy-cli/homeboy/store"
)

// Connector opens a remote for a server record.
type Connector func(s *domain.Server) (Remote, error)

// Options selects what a project deploy touches.
type Options struct {
	ProjectID    string
	ComponentIDs []string
	SkipBuild    bool
}

// ComponentResult is the per-component part of a project deploy.
type ComponentResult struct {
	ComponentID string          `json:"component_id"`
	Success     bool            `json:"success"`
	Build       *build.Result   `json:"build,omitempty"`
	Artifact    string          `json:"artifact,omitempty"`
	Outcome     *Outcome        `json:"outcome,omitempty"`
	Error       *apperror.Error `json:"error,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
}

// Result summarizes a project deploy.
type Result struct {
	ProjectID  string             `json:"project_id"`
	ServerID   string             `json:"server_id"`
	Components []*ComponentResult `json:"components"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
}

// FirstError returns the error of the first failed component.
func (r *Result) FirstError() error {
	for _, c := range r.Components {
		if c.Error != nil {
			return c.Error
		}
	}
	return nil
}

// Service deploys a project's components to the project's server.
type Service struct {
	Store       *store.Store
	Registry    *modules.Registry
	Builder     *build.Builder
	Connect     Connector
	Permissions config.Permissions
	History     repository.RunRepository
}

// RemoteDir is the component's remote_path when absolute, else the
// remote_path under the project's base_path.
func RemoteDir(p *domain.Project, c *domain.Component) (string, error) {
	remote := strings.TrimSpace(c.RemotePath)
	if remote == "" {
		return "", apperror.Newf(apperror.ConfigMissingKey, "Component '%s' has no remote_path", c.ID).
			WithDetail("component_id", c.ID).
			WithHint("Set it with: homeboy component set " + c.ID + ` --json '{"remote_path":"..."}'`)
	}
	if path.IsAbs(remote) {
		return path.Clean(remote), nil
	}
	if strings.TrimSpace(p.BasePath) == "" {
		return "", apperror.Newf(apperror.ConfigMissingKey, "Project '%s' has no base_path for relative remote_path '%s'", p.ID, remote).
			WithDetail("project_id", p.ID).
			WithDetail("component_id", c.ID)
	}
	return path.Join(p.BasePath, remote), nil
}

// Contributions collects the overrides and verifications of the enabled
// modules in order.
func Contributions(enabled []*domain.Manifest) ([]domain.DeployOverride, []domain.DeployVerification) {
	overrides := []domain.DeployOverride{}
	verifications := []domain.DeployVerification{}
	for _, m := range enabled {
		if m.DeployOverride != nil {
			overrides = append(overrides, *m.DeployOverride)
		}
		if m.DeployVerification != nil {
			verifications = append(verifications, *m.DeployVerification)
		}
	}
	return overrides, verifications
}

// Deploy builds and deploys the selected components one after another.
// Component failures are reported in the result; only failures to set up
// the deploy are returned as errors.
func (s *Service) Deploy(ctx context.Context, opts Options) (*Result, error) {
	p, server, err := s.projectServer(opts.ProjectID)
	if err != nil {
		return nil, err
	}

	ids, err := selectComponents(p, opts.ComponentIDs)
	if err != nil {
		return nil, err
	}
	components := make([]*domain.Component, 0, len(ids))
	for _, id := range ids {
		c, err := s.Store.Component(id)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}

	remote, err := s.Connect(server)
	if err != nil {
		return nil, err
	}
	executor := &Executor{Remote: remote}

	result := &Result{ProjectID: p.ID, ServerID: server.ID, Components: []*ComponentResult{}}
	for _, c := range components {
		cr := s.deployComponent(ctx, executor, p, c, opts.SkipBuild)
		result.Components = append(result.Components, cr)
		if cr.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// projectServer loads a project and the server it deploys to.
func (s *Service) projectServer(projectID string) (*domain.Project, *domain.Server, error) {
	p, err := s.Store.Project(projectID)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(p.ServerID) == "" {
		return nil, nil, apperror.Newf(apperror.ConfigMissingKey, "Project '%s' has no server_id", p.ID).
			WithDetail("project_id", p.ID).
			WithHint("Set it with: homeboy project set " + p.ID + ` --json '{"server_id":"..."}'`)
	}
	server, err := s.Store.Server(p.ServerID)
	if err != nil {
		return nil, nil, err
	}
	return p, server, nil
}

func selectComponents(p *domain.Project, requested []string) ([]string, error) {
	if len(requested) == 0 {
		if len(p.ComponentIDs) == 0 {
			return nil, apperror.Newf(apperror.DeployNoComponentsConfigured, "Project '%s' has no components", p.ID).
				WithDetail("project_id", p.ID).
				WithHint("Add components with: homeboy project set " + p.ID + ` --json '{"component_ids":["..."]}'`)
		}
		return p.ComponentIDs, nil
	}
	for _, id := range requested {
		if !p.HasComponent(id) {
			return nil, apperror.InvalidArgument("component",
				fmt.Sprintf("component '%s' is not part of project '%s'", id, p.ID),
				apperror.Suggest(id, p.ComponentIDs, 3))
		}
	}
	return requested, nil
}

func (s *Service) deployComponent(ctx context.Context, executor *Executor, p *domain.Project, c *domain.Component, skipBuild bool) *ComponentResult {
	started := time.Now()
	cr := &ComponentResult{ComponentID: c.ID}
	run := domain.NewRun(domain.RunKindDeploy, c.ID)
	run.ProjectID = p.ID

	err := s.runComponent(ctx, executor, p, c, skipBuild, cr, run)
	cr.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		cr.Error = apperror.As(err)
		slog.Error("Service operation failed",
			"layer", "deploy",
			"operation", "deploy_component",
			"project_id", p.ID,
			"component_id", c.ID,
			"error", err)
	} else {
		cr.Success = true
	}

	run.Finish(cr.Success, err)
	repository.Record(s.History, run)
	return cr
}

func (s *Service) runComponent(ctx context.Context, executor *Executor, p *domain.Project, c *domain.Component, skipBuild bool, cr *ComponentResult, run *domain.Run) error {
	enabled := s.Registry.ForComponent(c, p)

	step := time.Now()
	if skipBuild {
		artifact, err := build.ResolveArtifact(c)
		if err != nil {
			run.Steps = append(run.Steps, failedStep("build", step, err))
			return err
		}
		cr.Artifact = artifact
		run.Steps = append(run.Steps, domain.RunStep{Name: "build", Status: domain.StepStatusSkipped, Reason: "skip build"})
	} else {
		env := modules.ExecContext{Project: p, Component: c}.Env()
		res, err := s.Builder.Build(ctx, c, enabled, env)
		cr.Build = res
		if err != nil {
			run.Steps = append(run.Steps, failedStep("build", step, err))
			return err
		}
		if res.Artifact == "" {
			err := apperror.Newf(apperror.ConfigMissingKey, "Component '%s' has no build_artifact", c.ID).
				WithDetail("component_id", c.ID)
			run.Steps = append(run.Steps, failedStep("build", step, err))
			return err
		}
		cr.Artifact = res.Artifact
		run.Steps = append(run.Steps, okStep("build", step))
	}

	step = time.Now()
	dir, err := RemoteDir(p, c)
	if err != nil {
		run.Steps = append(run.Steps, failedStep("deploy", step, err))
		return err
	}
	overrides, verifications := Contributions(enabled)
	outcome, err := executor.Deploy(ctx, Request{
		ComponentID:    c.ID,
		Artifact:       cr.Artifact,
		RemoteDir:      dir,
		ExtractCommand: c.ExtractCommand,
		Verifications:  verifications,
		Overrides:      overrides,
		DirMode:        s.Permissions.RemoteDirMode,
		FileMode:       s.Permissions.RemoteFileMode,
	})
	cr.Outcome = outcome
	if err != nil {
		run.Steps = append(run.Steps, failedStep("deploy", step, err))
		return err
	}
	run.Steps = append(run.Steps, okStep("deploy", step))
	return nil
}

func okStep(name string, started time.Time) domain.RunStep {
	return domain.RunStep{Name: name, Status: domain.StepStatusOK, DurationMS: time.Since(started).Milliseconds()}
}

func failedStep(name string, started time.Time, err error) domain.RunStep {
	return domain.RunStep{
		Name:       name,
		Status:     domain.StepStatusFailed,
		Reason:     apperror.As(err).Message,
		DurationMS: time.Since(started).Milliseconds(),
	}
}
