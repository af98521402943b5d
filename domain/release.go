package domain

import "fmt"

// VersionChange is the old to new version pair produced by a bump.
type VersionChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Artifact is a file produced by a build.
type Artifact struct {
	Path     string `json:"path"`
	Type     string `json:"type,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// ReleaseContext is shared by reference between the steps of one release
// run. Scalar fields are write-once; artifacts are append-only.
type ReleaseContext struct {
	Version   *VersionChange `json:"version,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Artifacts []Artifact     `json:"artifacts"`
}

// NewReleaseContext returns an empty context.
func NewReleaseContext() *ReleaseContext {
	return &ReleaseContext{Artifacts: []Artifact{}}
}

func (c *ReleaseContext) SetVersion(from, to string) error {
	if c.Version != nil {
		return fmt.Errorf("release context version already set to %s", c.Version.New)
	}
	c.Version = &VersionChange{Old: from, New: to}
	return nil
}

func (c *ReleaseContext) SetTag(tag string) error {
	if c.Tag != "" {
		return fmt.Errorf("release context tag already set to %s", c.Tag)
	}
	c.Tag = tag
	return nil
}

func (c *ReleaseContext) SetNotes(notes string) error {
	if c.Notes != "" {
		return fmt.Errorf("release context notes already set")
	}
	c.Notes = notes
	return nil
}

func (c *ReleaseContext) AddArtifact(a Artifact) {
	c.Artifacts = append(c.Artifacts, a)
}

// NewVersion returns the bumped version or "" before the version step ran.
func (c *ReleaseContext) NewVersion() string {
	if c.Version == nil {
		return ""
	}
	return c.Version.New
}

// ArtifactPaths lists artifact paths in production order.
func (c *ReleaseContext) ArtifactPaths() []string {
	paths := make([]string, 0, len(c.Artifacts))
	for _, a := range c.Artifacts {
		paths = append(paths, a.Path)
	}
	return paths
}
