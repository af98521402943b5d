package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultChangelogLabel is the pending section label when none is configured.
const DefaultChangelogLabel = "Unreleased"

// VersionTarget names a file holding the component version. The first
// target of a component is authoritative.
type VersionTarget struct {
	File    string `json:"file" validate:"required"`
	Pattern string `json:"pattern,omitempty"`
}

// ChangelogTarget names a Keep-a-Changelog document.
type ChangelogTarget struct {
	File string `json:"file" validate:"required"`
}

// ReleaseConfig carries per-component release pipeline tuning.
type ReleaseConfig struct {
	Skip               []string `json:"skip,omitempty"`
	Publish            []string `json:"publish,omitempty"`
	ContinueOnError    []string `json:"continue_on_error,omitempty"`
	CommitMessage      string   `json:"commit_message,omitempty"`
	Remote             string   `json:"remote,omitempty"`
	CleanupCommand     string   `json:"cleanup_command,omitempty"`
	PostReleaseCommand string   `json:"post_release_command,omitempty"`
}

// Component is a deployable unit with a local source tree and a remote
// install path.
type Component struct {
	ID                          string            `json:"id" validate:"required"`
	Name                        string            `json:"name" validate:"required"`
	LocalPath                   string            `json:"local_path,omitempty"`
	RemotePath                  string            `json:"remote_path,omitempty"`
	BuildArtifact               string            `json:"build_artifact,omitempty"`
	BuildCommand                string            `json:"build_command,omitempty"`
	ExtractCommand              string            `json:"extract_command,omitempty"`
	VersionTargets              []VersionTarget   `json:"version_targets,omitempty" validate:"dive"`
	ChangelogTargets            []ChangelogTarget `json:"changelog_targets,omitempty" validate:"dive"`
	ChangelogNextSectionLabel   string            `json:"changelog_next_section_label,omitempty"`
	ChangelogNextSectionAliases []string          `json:"changelog_next_section_aliases,omitempty"`
	Modules                     ModuleSettings    `json:"modules,omitempty"`
	Extensions                  ModuleSettings    `json:"extensions,omitempty"`
	Release                     *ReleaseConfig    `json:"release,omitempty"`
}

func (c *Component) EntityID() string       { return c.ID }
func (c *Component) SetEntityID(id string)  { c.ID = id }
func (c *Component) EntityName() string     { return c.Name }
func (c *Component) EntityType() EntityType { return EntityComponent }

// NextSectionLabel returns the configured pending-section label or the default.
func (c *Component) NextSectionLabel() string {
	if strings.TrimSpace(c.ChangelogNextSectionLabel) == "" {
		return DefaultChangelogLabel
	}
	return c.ChangelogNextSectionLabel
}

// ModuleIDs returns the ids of modules enabled for this component, sorted.
func (c *Component) ModuleIDs() []string {
	return c.Modules.IDs()
}

// ResolvePath joins a component-relative path onto base unless it is
// already absolute.
func ResolvePath(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// ReleaseSettings never returns nil.
func (c *Component) ReleaseSettings() ReleaseConfig {
	if c.Release == nil {
		return ReleaseConfig{}
	}
	return *c.Release
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
