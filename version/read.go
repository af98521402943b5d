package version

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

// TargetVersion is the version found in one target file.
type TargetVersion struct {
	File    string `json:"file"`
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Version string `json:"version"`
	Matches int    `json:"matches"`
}

// Info is the result of reading every target of a component.
type Info struct {
	ComponentID string          `json:"component_id"`
	Version     string          `json:"version"`
	Targets     []TargetVersion `json:"targets"`
}

func (t *Target) load() ([]byte, error) {
	data, err := os.ReadFile(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperror.InvalidArgument("version_targets", fmt.Sprintf("version file not found: %s", t.Path), nil)
	}
	if err != nil {
		return nil, apperror.IO("read", t.Path, err)
	}
	return data, nil
}

// matches returns every version string the target's pattern finds in data.
func (t *Target) matches(data []byte) ([]string, error) {
	if t.IsJSON() {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, apperror.InvalidConfigJSON(t.Path, err)
		}
		raw, ok := doc["version"]
		if !ok {
			return nil, nil
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, apperror.InvalidValue(t.File+"#/version", string(raw), "must be a string")
		}
		return []string{v}, nil
	}

	var out []string
	for _, m := range t.re.FindAllSubmatch(data, -1) {
		out = append(out, string(bytes.TrimSpace(m[1])))
	}
	return out, nil
}

// Read returns the single version held by the target. Zero matches and
// conflicting matches are errors.
func (t *Target) Read() (*TargetVersion, error) {
	data, err := t.load()
	if err != nil {
		return nil, err
	}
	found, err := t.matches(data)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperror.InvalidArgument("version_targets",
			fmt.Sprintf("no version found in %s using pattern %s", t.File, t.Pattern), nil)
	}

	distinct := unique(found)
	if len(distinct) > 1 {
		return nil, apperror.InvalidArgument("version_targets",
			fmt.Sprintf("conflicting versions in %s: %s", t.File, strings.Join(distinct, ", ")), distinct)
	}
	return &TargetVersion{
		File:    t.File,
		Path:    t.Path,
		Pattern: t.Pattern,
		Version: found[0],
		Matches: len(found),
	}, nil
}

// Read reports the component version from its first target along with the
// value each target currently holds.
func Read(c *domain.Component, lookup PatternLookup) (*Info, error) {
	targets, err := Targets(c, lookup)
	if err != nil {
		return nil, err
	}
	info := &Info{ComponentID: c.ID, Targets: make([]TargetVersion, 0, len(targets))}
	for _, t := range targets {
		tv, err := t.Read()
		if err != nil {
			return nil, err
		}
		info.Targets = append(info.Targets, *tv)
	}
	info.Version = info.Targets[0].Version
	return info, nil
}

func unique(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
