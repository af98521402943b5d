// Package git implements the git command group: read-only views of a
// component's repository as a release sees it.
package git

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/git"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/pipeline"
	"github.com/homeboy-cli/homeboy/version"
)

// Status is the data of `git status`.
type Status struct {
	ComponentID string `json:"component_id"`
	Branch      string `json:"branch"`
	*git.Changes
}

// Log is the data of `git log`.
type Log struct {
	ComponentID string                        `json:"component_id"`
	Baseline    *git.Baseline                 `json:"baseline"`
	Commits     []domain.Commit               `json:"commits"`
	Categories  map[domain.CommitCategory]int `json:"categories"`
	DocsOnly    bool                          `json:"docs_only"`
}

// Baseline is the data of `git baseline`.
type Baseline struct {
	ComponentID string `json:"component_id"`
	Version     string `json:"version,omitempty"`
	*git.Baseline
	Description string `json:"description"`
	Commits     int    `json:"commits_since"`
}

// Diff is the data of `git diff`.
type Diff struct {
	ComponentID string        `json:"component_id"`
	Since       string        `json:"since,omitempty"`
	Stat        *git.DiffStat `json:"stat,omitempty"`
	Diff        string        `json:"diff,omitempty"`
}

func NewCmdGit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Inspect a component's git repository",
	}

	cmd.AddCommand(NewCmdGitStatus())
	cmd.AddCommand(NewCmdGitLog())
	cmd.AddCommand(NewCmdGitBaseline())
	cmd.AddCommand(NewCmdGitDiff())
	return cmd
}

// repository resolves the component and checks its local path is a work tree.
func repository(componentID string) (pipeline.Target, *git.Client, error) {
	target, err := utils.ComponentTarget(componentID, "")
	if err != nil {
		return pipeline.Target{}, nil, err
	}
	dir := target.Component.LocalPath
	if !git.IsRepository(dir) {
		return pipeline.Target{}, nil, apperror.InvalidArgument("local_path",
			fmt.Sprintf("'%s' is not a git work tree", dir), nil)
	}
	return target, git.New(app.GetRunner(), dir), nil
}

// baseline detects the reference changes are counted from, using the
// component's current version when it can be read.
func baseline(cmd *cobra.Command, t pipeline.Target, client *git.Client) (string, *git.Baseline, error) {
	current := ""
	if info, err := version.Read(t.Component, utils.VersionLookup(t)); err == nil {
		current = info.Version
	}
	b, err := client.DetectBaseline(cmd.Context(), current)
	return current, b, err
}

func NewCmdGitStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status <component-id>",
		Short: "Show working tree changes",
		Args:  utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, client, err := repository(args[0])
			if err != nil {
				return err
			}
			changes, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			branch, err := client.CurrentBranch(cmd.Context())
			if err != nil {
				return err
			}
			return output.Print(cmd, Status{ComponentID: t.Component.ID, Branch: branch, Changes: changes})
		},
	}
}

func NewCmdGitLog() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "log <component-id>",
		Short: "List commits since the last release",
		Args:  utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, client, err := repository(args[0])
			if err != nil {
				return err
			}

			b := &git.Baseline{Reference: since}
			if since == "" {
				if _, b, err = baseline(cmd, t, client); err != nil {
					return err
				}
			}
			commits, err := client.CommitsSince(cmd.Context(), b.Reference)
			if err != nil {
				return err
			}

			if stderr := cmd.ErrOrStderr(); output.IsTerminal(stderr) {
				if table, err := output.CommitTable(commits); err == nil {
					fmt.Fprint(stderr, table)
				}
			}
			return output.Print(cmd, Log{
				ComponentID: t.Component.ID,
				Baseline:    b,
				Commits:     commits,
				Categories:  git.Categorize(commits),
				DocsOnly:    git.IsDocsOnly(commits),
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "List commits after this ref instead of the detected baseline")
	return cmd
}

func NewCmdGitBaseline() *cobra.Command {
	return &cobra.Command{
		Use:   "baseline <component-id>",
		Short: "Show the reference the next release is compared against",
		Long: `Show the reference the next release is compared against: the tag of the
current version, else the latest tag, else the first commit.`,
		Args: utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, client, err := repository(args[0])
			if err != nil {
				return err
			}
			current, b, err := baseline(cmd, t, client)
			if err != nil {
				return err
			}
			commits, err := client.CommitsSince(cmd.Context(), b.Reference)
			if err != nil {
				return err
			}
			return output.Print(cmd, Baseline{
				ComponentID: t.Component.ID,
				Version:     current,
				Baseline:    b,
				Description: b.Describe(),
				Commits:     len(commits),
			})
		},
	}
}

func NewCmdGitDiff() *cobra.Command {
	var (
		since   string
		release bool
	)

	cmd := &cobra.Command{
		Use:   "diff <component-id>",
		Short: "Show uncommitted changes or changes since the last release",
		Long: `Without flags, show the staged and unstaged diff of the working tree.

With --release or --since, summarize the committed changes from the
baseline (or the given ref) to HEAD per file.`,
		Args: utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, client, err := repository(args[0])
			if err != nil {
				return err
			}

			if since == "" && !release {
				diff, err := client.Diff(cmd.Context())
				if err != nil {
					return err
				}
				return output.Print(cmd, Diff{ComponentID: t.Component.ID, Diff: diff})
			}

			ref := since
			if ref == "" {
				_, b, err := baseline(cmd, t, client)
				if err != nil {
					return err
				}
				ref = b.Reference
			}
			stat, err := client.RangeDiffStat(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return output.Print(cmd, Diff{ComponentID: t.Component.ID, Since: ref, Stat: stat})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Summarize changes after this ref")
	cmd.Flags().BoolVar(&release, "release", false, "Summarize changes since the release baseline")
	return cmd
}
