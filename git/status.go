package git

import (
	"strconv"
	"strings"
)

// Changes summarizes `git status --porcelain=v1`.
type Changes struct {
	Staged     []string `json:"staged"`
	Unstaged   []string `json:"unstaged"`
	Untracked  []string `json:"untracked"`
	HasChanges bool     `json:"has_changes"`
}

// Paths returns every changed path once, in first-seen order.
func (c *Changes) Paths() []string {
	seen := map[string]bool{}
	var out []string
	for _, group := range [][]string{c.Staged, c.Unstaged, c.Untracked} {
		for _, p := range group {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// ParsePorcelain decodes porcelain v1 output. The index and worktree
// columns are read independently, so a path can be both staged and
// unstaged.
func ParsePorcelain(out string) *Changes {
	c := &Changes{Staged: []string{}, Unstaged: []string{}, Untracked: []string{}}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}
		x, y := line[0], line[1]
		path := line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		path = unquote(path)

		switch {
		case x == '?' && y == '?':
			c.Untracked = append(c.Untracked, path)
		case x == '!' && y == '!':
			continue
		default:
			if x != ' ' {
				c.Staged = append(c.Staged, path)
			}
			if y != ' ' {
				c.Unstaged = append(c.Unstaged, path)
			}
		}
	}

	c.HasChanges = len(c.Staged)+len(c.Unstaged)+len(c.Untracked) > 0
	return c
}

// unquote reverses git's C-style quoting of unusual paths.
func unquote(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if s, err := strconv.Unquote(p); err == nil {
			return s
		}
	}
	return p
}
