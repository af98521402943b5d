package domain

import (
	"encoding/json"
	"strings"
)

// Well-known module action ids the release pipeline looks for.
const (
	ActionReleasePublish     = "release.publish"
	ActionReleasePackage     = "release.package"
	ActionReleaseCleanup     = "release.cleanup"
	ActionReleasePostRelease = "release.post_release"
)

// CLIConfig lets a module expose a remote tool through `homeboy cli`.
type CLIConfig struct {
	Tool               string            `json:"tool" yaml:"tool" validate:"required"`
	CommandTemplate    string            `json:"command_template" yaml:"command_template" validate:"required"`
	WorkingDirTemplate string            `json:"working_dir_template,omitempty" yaml:"working_dir_template,omitempty"`
	SettingsFlags      map[string]string `json:"settings_flags,omitempty" yaml:"settings_flags,omitempty"`
}

// BuildConfig describes how a module builds components it recognizes.
type BuildConfig struct {
	ArtifactExtensions []string `json:"artifact_extensions,omitempty" yaml:"artifact_extensions,omitempty"`
	ScriptNames        []string `json:"script_names,omitempty" yaml:"script_names,omitempty"`
	CommandTemplate    string   `json:"command_template,omitempty" yaml:"command_template,omitempty"`
}

// MatchesArtifact reports whether the artifact path ends with one of the
// claimed extensions.
func (b *BuildConfig) MatchesArtifact(artifact string) bool {
	if artifact == "" {
		return false
	}
	lower := strings.ToLower(artifact)
	for _, ext := range b.ArtifactExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DeployVerification checks a deployment landed correctly.
type DeployVerification struct {
	PathPattern        string `json:"path_pattern" yaml:"path_pattern" validate:"required"`
	VerifyCommand      string `json:"verify_command" yaml:"verify_command" validate:"required"`
	VerifyErrorMessage string `json:"verify_error_message,omitempty" yaml:"verify_error_message,omitempty"`
}

// DeployOverride replaces the default extract path for matching destinations.
type DeployOverride struct {
	PathPattern        string `json:"path_pattern" yaml:"path_pattern" validate:"required"`
	StagingPath        string `json:"staging_path" yaml:"staging_path" validate:"required"`
	InstallCommand     string `json:"install_command" yaml:"install_command" validate:"required"`
	CleanupCommand     string `json:"cleanup_command,omitempty" yaml:"cleanup_command,omitempty"`
	SkipPermissionsFix bool   `json:"skip_permissions_fix,omitempty" yaml:"skip_permissions_fix,omitempty"`
}

// Runtime is present on modules that are themselves executable.
type Runtime struct {
	RunCommand   string            `json:"run_command,omitempty" yaml:"run_command,omitempty"`
	SetupCommand string            `json:"setup_command,omitempty" yaml:"setup_command,omitempty"`
	ReadyCheck   string            `json:"ready_check,omitempty" yaml:"ready_check,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Action is a named side effect a module contributes.
type Action struct {
	ID              string `json:"id" yaml:"id" validate:"required"`
	Label           string `json:"label,omitempty" yaml:"label,omitempty"`
	Command         string `json:"command" yaml:"command" validate:"required"`
	ContinueOnError bool   `json:"continue_on_error,omitempty" yaml:"continue_on_error,omitempty"`
}

// SettingType enumerates the value types a module setting may declare.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

// SettingSpec is one entry of a module's settings schema.
type SettingSpec struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	Type        SettingType `json:"type" yaml:"type" validate:"required,oneof=string number boolean json"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Requires lists what must exist for a module to be usable.
type Requires struct {
	Modules    []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	Components []string `json:"components,omitempty" yaml:"components,omitempty"`
}

// Manifest is the declarative contribution record of a module.
type Manifest struct {
	ID                 string              `json:"id" yaml:"id"`
	Name               string              `json:"name,omitempty" yaml:"name,omitempty"`
	Version            string              `json:"version,omitempty" yaml:"version,omitempty"`
	Description        string              `json:"description,omitempty" yaml:"description,omitempty"`
	CLI                *CLIConfig          `json:"cli,omitempty" yaml:"cli,omitempty"`
	Build              *BuildConfig        `json:"build,omitempty" yaml:"build,omitempty"`
	DeployVerification *DeployVerification `json:"deploy_verification,omitempty" yaml:"deploy_verification,omitempty"`
	DeployOverride     *DeployOverride     `json:"deploy_override,omitempty" yaml:"deploy_override,omitempty"`
	VersionPatterns    map[string]string   `json:"version_patterns,omitempty" yaml:"version_patterns,omitempty"`
	Runtime            *Runtime            `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Actions            []Action            `json:"actions,omitempty" yaml:"actions,omitempty" validate:"dive"`
	Settings           []SettingSpec       `json:"settings,omitempty" yaml:"settings,omitempty" validate:"dive"`
	Requires           *Requires           `json:"requires,omitempty" yaml:"requires,omitempty"`

	// Path is the module directory on disk.
	Path string `json:"path,omitempty" yaml:"-"`
	// Linked is true when the module directory is a symlink.
	Linked bool `json:"linked,omitempty" yaml:"-"`
}

// Action returns the action with the given id.
func (m *Manifest) Action(id string) (*Action, bool) {
	for i := range m.Actions {
		if m.Actions[i].ID == id {
			return &m.Actions[i], true
		}
	}
	return nil, false
}

// Setting returns the schema entry for id.
func (m *Manifest) Setting(id string) (*SettingSpec, bool) {
	for i := range m.Settings {
		if m.Settings[i].ID == id {
			return &m.Settings[i], true
		}
	}
	return nil, false
}

// MarshalSettings is a helper for HOMEBOY_SETTINGS_JSON.
func MarshalSettings(settings map[string]any) string {
	if settings == nil {
		settings = map[string]any{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "{}"
	}
	return string(data)
}
