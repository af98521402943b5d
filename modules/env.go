package modules

import (
	"strconv"
	"strings"

	"github.com/homeboy-cli/homeboy/domain"
)

// ExecContextVersion is the version of the environment contract below.
const ExecContextVersion = 2

// Environment variables exported to module commands.
const (
	EnvExecContextVersion = "HOMEBOY_EXEC_CONTEXT_VERSION"
	EnvModuleID           = "HOMEBOY_MODULE_ID"
	EnvModulePath         = "HOMEBOY_MODULE_PATH"
	EnvSettingsJSON       = "HOMEBOY_SETTINGS_JSON"
	EnvProjectID          = "HOMEBOY_PROJECT_ID"
	EnvProjectPath        = "HOMEBOY_PROJECT_PATH"
	EnvComponentID        = "HOMEBOY_COMPONENT_ID"
	EnvComponentPath      = "HOMEBOY_COMPONENT_PATH"
	EnvStep               = "HOMEBOY_STEP"
	EnvSkip               = "HOMEBOY_SKIP"

	EnvReleaseVersion         = "HOMEBOY_RELEASE_VERSION"
	EnvReleasePreviousVersion = "HOMEBOY_RELEASE_PREVIOUS_VERSION"
	EnvReleaseTag             = "HOMEBOY_RELEASE_TAG"
	EnvReleaseNotes           = "HOMEBOY_RELEASE_NOTES"
	EnvReleaseArtifacts       = "HOMEBOY_RELEASE_ARTIFACTS"
)

// ExecContext is what a module command knows about the invocation.
type ExecContext struct {
	Module    *domain.Manifest
	Settings  map[string]any
	Project   *domain.Project
	Component *domain.Component
	Step      string
	Skip      []string
}

// Env renders the context as environment variables. Optional values are
// only set when present.
func (x ExecContext) Env() map[string]string {
	env := map[string]string{
		EnvExecContextVersion: strconv.Itoa(ExecContextVersion),
		EnvSettingsJSON:       domain.MarshalSettings(x.Settings),
	}
	if x.Module != nil {
		env[EnvModuleID] = x.Module.ID
		env[EnvModulePath] = x.Module.Path
	}
	if x.Project != nil {
		env[EnvProjectID] = x.Project.ID
		if x.Project.BasePath != "" {
			env[EnvProjectPath] = x.Project.BasePath
		}
	}
	if x.Component != nil {
		env[EnvComponentID] = x.Component.ID
		if x.Component.LocalPath != "" {
			env[EnvComponentPath] = x.Component.LocalPath
		}
	}
	if x.Step != "" {
		env[EnvStep] = x.Step
	}
	if len(x.Skip) > 0 {
		env[EnvSkip] = strings.Join(x.Skip, ",")
	}
	return env
}

// ReleaseEnv exposes the release context fields written so far.
func ReleaseEnv(rc *domain.ReleaseContext) map[string]string {
	env := map[string]string{}
	if rc == nil {
		return env
	}
	if rc.Version != nil {
		env[EnvReleaseVersion] = rc.Version.New
		env[EnvReleasePreviousVersion] = rc.Version.Old
	}
	if rc.Tag != "" {
		env[EnvReleaseTag] = rc.Tag
	}
	if rc.Notes != "" {
		env[EnvReleaseNotes] = rc.Notes
	}
	if paths := rc.ArtifactPaths(); len(paths) > 0 {
		env[EnvReleaseArtifacts] = strings.Join(paths, "\n")
	}
	return env
}

// MergeEnv combines env maps; later maps win.
func MergeEnv(envs ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, e := range envs {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}
