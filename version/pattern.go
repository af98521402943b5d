// Package version reads and rewrites component version strings in the files
// listed as version targets.
package version

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

const (
	// DefaultPattern applies to non-JSON targets without a pattern.
	DefaultPattern = `(\d+\.\d+\.\d+)`
	// JSONPattern is the built-in pattern for .json targets. Targets that
	// resolve to it are read and written through the /version key instead
	// of the regex.
	JSONPattern = `"version"\s*:\s*"(\d+\.\d+\.\d+)"`
)

// PatternLookup returns a pattern contributed for a file extension, such as
// the version patterns of enabled modules.
type PatternLookup func(ext string) (string, bool)

// ValidatePattern checks that pattern compiles and has exactly one
// capturing group.
func ValidatePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	if n := re.NumSubexp(); n != 1 {
		return fmt.Errorf("pattern must contain exactly one capture group, found %d", n)
	}
	return nil
}

// Target is a version target with its pattern resolved and its path made
// absolute.
type Target struct {
	File    string `json:"file"`
	Path    string `json:"path"`
	Pattern string `json:"pattern"`

	re *regexp.Regexp
}

// IsJSON reports whether the target is read through the /version key.
func (t *Target) IsJSON() bool {
	return t.Pattern == JSONPattern && strings.EqualFold(filepath.Ext(t.File), ".json")
}

// ResolvePattern picks the pattern for a file: explicit, then a contributed
// pattern for its extension, then the built-in JSON or default pattern.
func ResolvePattern(file, explicit string, lookup PatternLookup) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	ext := strings.ToLower(filepath.Ext(file))
	if lookup != nil && ext != "" {
		if p, ok := lookup(ext); ok {
			return p
		}
	}
	if ext == ".json" {
		return JSONPattern
	}
	return DefaultPattern
}

// Targets resolves every version target of the component. The first target
// is authoritative.
func Targets(c *domain.Component, lookup PatternLookup) ([]*Target, error) {
	if len(c.VersionTargets) == 0 {
		return nil, apperror.Newf(apperror.ConfigMissingKey, "Component '%s' has no version_targets", c.ID).
			WithDetail("component_id", c.ID).
			WithHint("Add one with: homeboy component set " + c.ID + ` --json '{"version_targets":[{"file":"..."}]}'`)
	}

	out := make([]*Target, 0, len(c.VersionTargets))
	for i, vt := range c.VersionTargets {
		pattern := ResolvePattern(vt.File, vt.Pattern, lookup)
		if err := ValidatePattern(pattern); err != nil {
			return nil, apperror.InvalidValue(fmt.Sprintf("version_targets[%d].pattern", i), pattern, err.Error())
		}
		out = append(out, &Target{
			File:    vt.File,
			Path:    domain.ResolvePath(c.LocalPath, vt.File),
			Pattern: pattern,
			re:      regexp.MustCompile(pattern),
		})
	}
	return out, nil
}
