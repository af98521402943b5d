// Package git wraps the git binary for the status, history, baseline and
// release operations the pipeline needs. Work-tree detection and module
// checkouts use go-git directly.
package git

import (
	"context"
	"log/slog"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
)

// DefaultRemote is pushed to when a component configures none.
const DefaultRemote = "origin"

// Client runs git in a fixed working directory.
type Client struct {
	runner runner.Runner
	dir    string
}

// New returns a client for the repository containing dir.
func New(r runner.Runner, dir string) *Client {
	return &Client{runner: r, dir: dir}
}

// Dir returns the working directory.
func (c *Client) Dir() string {
	return c.dir
}

func (c *Client) exec(ctx context.Context, args ...string) (*runner.Result, error) {
	res, err := c.runner.Run(ctx, runner.Command{Name: "git", Args: args, Dir: c.dir})
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", args[0],
			"working_dir", c.dir,
			"error", err)
		return nil, apperror.Wrap(apperror.GitCommandFailed, err, "failed to run git "+args[0]).
			WithDetail("command", "git "+strings.Join(args, " "))
	}
	return res, nil
}

// run executes git and turns a non-zero exit into git.command_failed.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	res, err := c.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", apperror.GitFailure(apperror.CommandFailure{
			Command:  "git " + strings.Join(args, " "),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   c.dir,
		})
	}
	return res.Stdout, nil
}

// Status reports the working tree changes.
func (c *Client) Status(ctx context.Context) (*Changes, error) {
	out, err := c.run(ctx, "status", "--porcelain=v1", "--untracked-files=normal")
	if err != nil {
		return nil, err
	}
	return ParsePorcelain(out), nil
}

// Diff returns the staged and unstaged diffs under section headers.
func (c *Client) Diff(ctx context.Context) (string, error) {
	staged, err := c.run(ctx, "diff", "--cached")
	if err != nil {
		return "", err
	}
	unstaged, err := c.run(ctx, "diff")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if strings.TrimSpace(staged) != "" {
		b.WriteString("=== Staged changes ===\n")
		b.WriteString(staged)
	}
	if strings.TrimSpace(unstaged) != "" {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString("=== Unstaged changes ===\n")
		b.WriteString(unstaged)
	}
	return b.String(), nil
}

// RangeDiff returns the diff from ref to HEAD restricted to the working
// directory.
func (c *Client) RangeDiff(ctx context.Context, ref string) (string, error) {
	return c.run(ctx, "diff", ref+"..HEAD", "--", ".")
}

// LatestTag returns the most recent annotated tag reachable from HEAD.
// ok is false when the history has no such tag.
func (c *Client) LatestTag(ctx context.Context) (tag string, ok bool, err error) {
	res, err := c.exec(ctx, "describe", "--abbrev=0")
	if err != nil {
		return "", false, err
	}
	if !res.Success() {
		if noTags(res.Stderr) {
			return "", false, nil
		}
		return "", false, apperror.GitFailure(apperror.CommandFailure{
			Command:  "git describe --abbrev=0",
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   c.dir,
		})
	}
	return strings.TrimSpace(res.Stdout), true, nil
}

func noTags(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no names found") ||
		strings.Contains(s, "no tags can describe") ||
		strings.Contains(s, "cannot describe anything")
}

// TagExists reports whether refs/tags/<name> exists.
func (c *Client) TagExists(ctx context.Context, name string) (bool, error) {
	res, err := c.exec(ctx, "rev-parse", "--verify", "--quiet", "refs/tags/"+name)
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// CommitsSince lists commits after ref (or the whole history when ref is
// empty), newest first.
func (c *Client) CommitsSince(ctx context.Context, ref string) ([]domain.Commit, error) {
	args := []string{"log", "--format=%h|%s"}
	if ref != "" {
		args = append(args, ref+"..HEAD")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseLog(out), nil
}

// ParseLog parses `git log --format=%h|%s` output.
func ParseLog(out string) []domain.Commit {
	commits := []domain.Commit{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		hash, subject, _ := strings.Cut(line, "|")
		commits = append(commits, ParseCommit(hash, subject))
	}
	return commits
}

// RootCommit returns the first commit of HEAD's history.
func (c *Client) RootCommit(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-list", "--max-parents=0", "HEAD")
	if err != nil {
		return "", err
	}
	lines := strings.Fields(out)
	if len(lines) == 0 {
		return "", apperror.Unexpected("repository %s has no commits", c.dir)
	}
	return lines[len(lines)-1], nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Add stages paths.
func (c *Client) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records the staged changes.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", "-m", message)
	return err
}

// Tag creates an annotated tag on HEAD.
func (c *Client) Tag(ctx context.Context, name, message string) error {
	if strings.TrimSpace(message) == "" {
		message = name
	}
	_, err := c.run(ctx, "tag", "-a", name, "-m", message)
	return err
}

// Push pushes refs to remote.
func (c *Client) Push(ctx context.Context, remote string, refs ...string) error {
	if remote == "" {
		remote = DefaultRemote
	}
	_, err := c.run(ctx, append([]string{"push", remote}, refs...)...)
	return err
}

// HasRemote reports whether the repository configures remote name.
func (c *Client) HasRemote(ctx context.Context, name string) (bool, error) {
	out, err := c.run(ctx, "remote")
	if err != nil {
		return false, err
	}
	for _, r := range strings.Fields(out) {
		if r == name {
			return true, nil
		}
	}
	return false, nil
}
