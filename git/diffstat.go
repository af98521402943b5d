package git

import (
	"context"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileStat counts the lines a diff adds and removes in one file.
type FileStat struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// DiffStat summarizes a unified diff.
type DiffStat struct {
	Files   []FileStat `json:"files"`
	Added   int        `json:"added"`
	Removed int        `json:"removed"`
}

// ParseDiffStat parses multi-file unified diff output such as
// `git diff a..b` into per-file line counts.
func ParseDiffStat(patch string) (*DiffStat, error) {
	stat := &DiffStat{Files: []FileStat{}}
	if strings.TrimSpace(patch) == "" {
		return stat, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, err
	}

	for _, fd := range fileDiffs {
		fs := FileStat{Path: diffPath(fd)}
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					fs.Added++
				case strings.HasPrefix(line, "-"):
					fs.Removed++
				}
			}
		}
		stat.Added += fs.Added
		stat.Removed += fs.Removed
		stat.Files = append(stat.Files, fs)
	}
	return stat, nil
}

// diffPath prefers the new name and strips git's a/ and b/ prefixes.
func diffPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// RangeDiffStat summarizes RangeDiff(ref).
func (c *Client) RangeDiffStat(ctx context.Context, ref string) (*DiffStat, error) {
	patch, err := c.RangeDiff(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ParseDiffStat(patch)
}
