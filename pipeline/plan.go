// Package pipeline plans and runs a component's release: version bump,
// changelog, git, build, package, publish and cleanup steps.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/homeboy-cli/homeboy/capability"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/git"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/version"
)

// Status is the planned state of a step.
type Status string

const (
	StatusReady    Status = "ready"
	StatusMissing  Status = "missing"
	StatusDisabled Status = "disabled"
)

// Options control a release.
type Options struct {
	Bump   version.BumpType
	DryRun bool
	// PathOverride replaces the component's local_path for this run.
	PathOverride string
	// Skip disables steps by type; "publish" disables every publish step.
	Skip []string
}

// Target is the component being released and the project it resolves
// through, which may be nil.
type Target struct {
	Component *domain.Component
	Project   *domain.Project
}

// Step is one planned release step.
type Step struct {
	ID              string              `json:"id"`
	Type            capability.StepType `json:"type"`
	Status          Status              `json:"status"`
	Missing         []string            `json:"missing,omitempty"`
	Needs           []string            `json:"needs,omitempty"`
	ContinueOnError bool                `json:"continue_on_error,omitempty"`
}

// Plan is the ordered release steps of a component.
type Plan struct {
	ComponentID string   `json:"component_id"`
	Enabled     bool     `json:"enabled"`
	Steps       []*Step  `json:"steps"`
	Warnings    []string `json:"warnings"`
	Hints       []string `json:"hints"`
}

// Step returns the planned step with the given id.
func (p *Plan) Step(id string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Planner builds plans from the module registry.
type Planner struct {
	Registry *modules.Registry
}

// resolve applies the path override and collects what planning needs.
func (pl *Planner) resolve(t Target, opts Options) (*domain.Component, *capability.Resolver) {
	c := t.Component
	if strings.TrimSpace(opts.PathOverride) != "" {
		copied := *c
		copied.LocalPath = opts.PathOverride
		c = &copied
	}
	enabled := pl.Registry.ForComponent(c, t.Project)
	return c, &capability.Resolver{
		Component: c,
		Enabled:   enabled,
		Lookup:    pl.Registry.Lookup,
		WorkTree:  git.IsRepository(c.LocalPath),
	}
}

// Plan lays out the release steps of t without touching disk.
func (pl *Planner) Plan(t Target, opts Options) *Plan {
	c, resolver := pl.resolve(t, opts)
	return buildPlan(c, resolver, opts)
}

func buildPlan(c *domain.Component, r *capability.Resolver, opts Options) *Plan {
	settings := c.ReleaseSettings()
	disabled := skipSet(append(append([]string{}, settings.Skip...), opts.Skip...))
	continueOn := map[string]bool{}
	for _, id := range settings.ContinueOnError {
		continueOn[strings.TrimSpace(id)] = true
	}
	hasPackage := len(r.Actions(domain.ActionReleasePackage)) > 0

	types := []capability.StepType{
		capability.StepVersion, capability.StepGitCommit, capability.StepGitTag,
		capability.StepBuild, capability.StepPackage, capability.StepGitPush,
	}
	for _, target := range r.PublishTargets() {
		types = append(types, capability.PublishStep(target))
	}
	types = append(types, capability.StepCleanup, capability.StepPostRelease)

	plan := &Plan{ComponentID: c.ID, Steps: make([]*Step, 0, len(types)), Warnings: []string{}, Hints: []string{}}
	status := map[string]Status{}

	for _, st := range types {
		step := &Step{ID: string(st), Type: st, Needs: needs(st, hasPackage)}
		step.ContinueOnError = continueOn[step.ID] || publishContinues(r, st)

		if disabled.has(st) {
			step.Status = StatusDisabled
		} else {
			step.Missing = append(step.Missing, r.Missing(st)...)
			if st == capability.StepVersion && len(c.VersionTargets) == 0 {
				step.Missing = append(step.Missing, "Component has no version_targets")
			}
			for _, dep := range step.Needs {
				if status[dep] == StatusMissing {
					step.Missing = append(step.Missing, fmt.Sprintf("Requires step '%s'", dep))
				}
			}
			step.Status = StatusReady
			if len(step.Missing) > 0 {
				step.Status = StatusMissing
			}
		}
		status[step.ID] = step.Status
		plan.Steps = append(plan.Steps, step)
	}

	plan.Enabled = status[string(capability.StepVersion)] != StatusMissing
	annotate(plan, c, r)
	return plan
}

// needs lists the steps st reads release context from.
func needs(st capability.StepType, hasPackage bool) []string {
	switch {
	case st == capability.StepGitCommit, st == capability.StepGitTag:
		return []string{string(capability.StepVersion)}
	case st == capability.StepGitPush:
		return []string{string(capability.StepGitTag)}
	case st == capability.StepPackage && hasPackage:
		return []string{string(capability.StepBuild)}
	}
	if _, ok := st.PublishTarget(); ok {
		return []string{string(capability.StepVersion)}
	}
	return nil
}

func publishContinues(r *capability.Resolver, st capability.StepType) bool {
	target, ok := st.PublishTarget()
	if !ok {
		return false
	}
	m, found := r.Module(target)
	if !found {
		return false
	}
	a, ok := m.Action(domain.ActionReleasePublish)
	return ok && a.ContinueOnError
}

func annotate(plan *Plan, c *domain.Component, r *capability.Resolver) {
	if s, _ := plan.Step(string(capability.StepVersion)); s.Status == StatusMissing {
		plan.Warnings = append(plan.Warnings, "Release is not possible until the version step is ready")
		plan.Hints = append(plan.Hints, "Add version_targets with: homeboy component set "+c.ID+` --json '{"version_targets":[{"file":"..."}]}'`)
	}
	if !r.WorkTree {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("'%s' is not a git work tree; git steps will be skipped", c.LocalPath))
	}
	if len(c.ChangelogTargets) == 0 {
		plan.Warnings = append(plan.Warnings, "Component has no changelog_targets; release notes will be empty")
	}
	for _, s := range plan.Steps {
		target, ok := s.Type.PublishTarget()
		if !ok || s.Status != StatusMissing {
			continue
		}
		if _, found := r.Module(target); !found {
			plan.Hints = append(plan.Hints, fmt.Sprintf("Install the '%s' module with: homeboy module install <git-url> --id %s", target, target))
		}
	}
}

type skips map[string]bool

func skipSet(ids []string) skips {
	out := skips{}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = true
		}
	}
	return out
}

func (s skips) has(st capability.StepType) bool {
	if s[string(st)] {
		return true
	}
	_, publish := st.PublishTarget()
	return publish && s["publish"]
}

// keys returns the skipped ids for the module environment.
func (s skips) keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
