package git

import (
	"context"
	"strings"

	"golang.org/x/mod/semver"
)

// BaselineKind says which rule picked a baseline reference.
type BaselineKind string

const (
	BaselineVersionTag BaselineKind = "version_tag"
	BaselineLatestTag  BaselineKind = "latest_tag"
	BaselineRootCommit BaselineKind = "root_commit"
)

// Baseline is the ref "changes since last release" are computed against.
type Baseline struct {
	Reference string       `json:"reference"`
	Kind      BaselineKind `json:"kind"`
}

// Describe renders the baseline for "changes since X" messages.
func (b *Baseline) Describe() string {
	switch b.Kind {
	case BaselineRootCommit:
		return "first commit " + b.Reference
	default:
		return b.Reference
	}
}

// VersionTag returns the tag name for a version.
func VersionTag(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

// DetectBaseline prefers the tag v<currentVersion>, then the latest tag,
// then the root commit.
func (c *Client) DetectBaseline(ctx context.Context, currentVersion string) (*Baseline, error) {
	if currentVersion != "" {
		tag := VersionTag(currentVersion)
		if semver.IsValid(tag) {
			ok, err := c.TagExists(ctx, tag)
			if err != nil {
				return nil, err
			}
			if ok {
				return &Baseline{Reference: tag, Kind: BaselineVersionTag}, nil
			}
		}
	}

	tag, ok, err := c.LatestTag(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Baseline{Reference: tag, Kind: BaselineLatestTag}, nil
	}

	root, err := c.RootCommit(ctx)
	if err != nil {
		return nil, err
	}
	return &Baseline{Reference: root, Kind: BaselineRootCommit}, nil
}
