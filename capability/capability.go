// Package capability decides which release step types a component supports
// given the modules enabled for it.
package capability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/modules"
)

// StepType identifies a release step.
type StepType string

const (
	StepVersion     StepType = "version"
	StepGitCommit   StepType = "git.commit"
	StepGitTag      StepType = "git.tag"
	StepBuild       StepType = "build"
	StepPackage     StepType = "package"
	StepGitPush     StepType = "git.push"
	StepCleanup     StepType = "cleanup"
	StepPostRelease StepType = "post_release"
)

// PublishPrefix starts every publish step type.
const PublishPrefix = "publish."

// PublishStep returns the step type publishing to target.
func PublishStep(target string) StepType {
	return StepType(PublishPrefix + target)
}

// PublishTarget returns the target of a publish step.
func (s StepType) PublishTarget() (string, bool) {
	if !strings.HasPrefix(string(s), PublishPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(string(s), PublishPrefix)
	return target, target != ""
}

// IsGit reports whether the step runs git in the component's local path.
func (s StepType) IsGit() bool {
	return strings.HasPrefix(string(s), "git.")
}

func (s StepType) String() string {
	return string(s)
}

// ParseStepType accepts built-in step types and publish.<target>.
func ParseStepType(s string) (StepType, error) {
	st := StepType(strings.TrimSpace(s))
	if _, ok := st.PublishTarget(); ok {
		return st, nil
	}
	for _, known := range BuiltinSteps {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown step type %q", s)
}

// BuiltinSteps are the step types that do not depend on a publish target.
var BuiltinSteps = []StepType{
	StepVersion, StepGitCommit, StepGitTag, StepBuild, StepPackage,
	StepGitPush, StepCleanup, StepPostRelease,
}

// Lookup finds a loaded module by id.
type Lookup func(id string) (*domain.Manifest, bool)

// Resolver answers capability questions for one component.
type Resolver struct {
	Component *domain.Component
	// Enabled are the modules enabled by the component and its project.
	Enabled []*domain.Manifest
	// Lookup finds any loaded module, enabled or not.
	Lookup Lookup
	// WorkTree is true when the component's local path is a git work tree.
	WorkTree bool
}

// IsSupported reports whether nothing is missing for the step.
func (r *Resolver) IsSupported(step StepType) bool {
	return len(r.Missing(step)) == 0
}

// Missing lists human-readable requirements the step lacks.
func (r *Resolver) Missing(step StepType) []string {
	if target, ok := step.PublishTarget(); ok {
		m, found := r.lookup(target)
		if !found {
			return []string{missingPublish(target)}
		}
		if _, ok := m.Action(domain.ActionReleasePublish); !ok {
			return []string{missingPublish(target)}
		}
		return nil
	}

	if step.IsGit() && !r.WorkTree {
		return []string{fmt.Sprintf("Component local_path '%s' is not a git work tree", r.Component.LocalPath)}
	}

	if step == StepBuild {
		if strings.TrimSpace(r.Component.BuildCommand) != "" {
			return nil
		}
		if _, _, ok := modules.MatchBuild(r.Component, r.Enabled); ok {
			return nil
		}
		return []string{"Missing build_command or a module build script matching '" + r.Component.BuildArtifact + "'"}
	}
	return nil
}

func missingPublish(target string) string {
	return fmt.Sprintf("Missing module '%s' with action '%s'", target, domain.ActionReleasePublish)
}

func (r *Resolver) lookup(id string) (*domain.Manifest, bool) {
	if r.Lookup != nil {
		return r.Lookup(id)
	}
	for _, m := range r.Enabled {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// PublishTargets lists the component's declared publish targets followed
// by enabled modules declaring release.publish, without duplicates.
func (r *Resolver) PublishTargets() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range r.Component.ReleaseSettings().Publish {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	var fromModules []string
	for _, m := range r.Enabled {
		if _, ok := m.Action(domain.ActionReleasePublish); ok && !seen[m.ID] {
			seen[m.ID] = true
			fromModules = append(fromModules, m.ID)
		}
	}
	sort.Strings(fromModules)
	return append(out, fromModules...)
}

// ModuleAction is an action contributed by an enabled module.
type ModuleAction struct {
	Module *domain.Manifest
	Action *domain.Action
}

// Actions returns the enabled modules' actions with the given id, in
// module order.
func (r *Resolver) Actions(actionID string) []ModuleAction {
	var out []ModuleAction
	for _, m := range r.Enabled {
		if a, ok := m.Action(actionID); ok {
			out = append(out, ModuleAction{Module: m, Action: a})
		}
	}
	return out
}

// Module finds a loaded module by id, enabled or not.
func (r *Resolver) Module(id string) (*domain.Manifest, bool) {
	return r.lookup(id)
}
