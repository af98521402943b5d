// Package changelog implements the changelog command group.
package changelog

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/changelog"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/git"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
	"github.com/homeboy-cli/homeboy/pipeline"
	"github.com/homeboy-cli/homeboy/version"
)

const emptyChangelog = "# Changelog\n"

// Shown is the data of `changelog show`.
type Shown struct {
	ComponentID string             `json:"component_id"`
	Path        string             `json:"path"`
	Label       string             `json:"label"`
	Pending     *changelog.Section `json:"pending"`
	Latest      *changelog.Section `json:"latest"`
}

// Added is the data of `changelog add`.
type Added struct {
	ComponentID string            `json:"component_id"`
	Path        string            `json:"path"`
	Added       int               `json:"added"`
	Entries     []changelog.Entry `json:"entries"`
	Baseline    *git.Baseline     `json:"baseline,omitempty"`
}

func NewCmdChangelog() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Read and edit component changelogs",
		Long: `Read and edit the Keep-a-Changelog document of a component. Entries are
added to the pending section, which a release finalizes with the new
version and date.`,
	}

	cmd.AddCommand(NewCmdChangelogShow())
	cmd.AddCommand(NewCmdChangelogAdd())
	return cmd
}

// changelogPath returns the first changelog target of c.
func changelogPath(c *domain.Component) (string, error) {
	if len(c.ChangelogTargets) == 0 {
		return "", apperror.New(apperror.ConfigMissingKey, "Component '"+c.ID+"' has no changelog_targets").
			WithDetail("key", "changelog_targets").
			WithHint("homeboy component set " + c.ID + ` --json '{"changelog_targets":[{"file":"CHANGELOG.md"}]}'`)
	}
	return domain.ResolvePath(c.LocalPath, c.ChangelogTargets[0].File), nil
}

func readChangelog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyChangelog, nil
	}
	if err != nil {
		return "", apperror.IO("read", path, err)
	}
	return string(data), nil
}

func NewCmdChangelogShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <component-id>",
		Short: "Show the pending and latest changelog sections",
		Args:  utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.GetStore().Component(args[0])
			if err != nil {
				return err
			}
			path, err := changelogPath(c)
			if err != nil {
				return err
			}
			content, err := readChangelog(path)
			if err != nil {
				return err
			}

			labels := pipeline.ChangelogLabels(app.GetConfig().App, c)
			doc := changelog.Parse(content)
			out := Shown{ComponentID: c.ID, Path: path, Label: labels.Label}
			if s, ok := doc.Pending(labels); ok {
				out.Pending = s
			}
			if s, ok := doc.Latest(); ok {
				out.Latest = s
			}
			return output.Print(cmd, out)
		},
	}
}

func NewCmdChangelogAdd() *cobra.Command {
	var (
		subsection  string
		projectID   string
		fromCommits bool
	)

	cmd := &cobra.Command{
		Use:   "add <component-id> [message]",
		Short: "Add an entry to the pending changelog section",
		Long: `Add an entry to the pending changelog section, creating the section when
it does not exist. A duplicate entry is rejected.

With --from-commits, entries are derived from the conventional commits
since the last release instead and duplicates are skipped.`,
		Args: utils.Args([]string{"component_id"}, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := utils.ComponentTarget(args[0], projectID)
			if err != nil {
				return err
			}
			c := target.Component
			path, err := changelogPath(c)
			if err != nil {
				return err
			}
			content, err := readChangelog(path)
			if err != nil {
				return err
			}
			labels := pipeline.ChangelogLabels(app.GetConfig().App, c)
			out := Added{ComponentID: c.ID, Path: path}

			var updated string
			switch {
			case fromCommits:
				if len(args) > 1 {
					return apperror.InvalidArgument("message", "cannot be combined with --from-commits", args[1:])
				}
				entries, baseline, err := commitEntries(cmd, target)
				if err != nil {
					return err
				}
				out.Baseline = baseline
				out.Entries = entries
				updated, out.Added, err = changelog.AddEntries(content, labels, entries)
				if err != nil {
					return err
				}
			default:
				if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
					return apperror.MissingArgument("message")
				}
				entry := changelog.Entry{Subsection: subsection, Text: args[1]}
				updated, err = changelog.AddEntry(content, labels, entry)
				if err != nil {
					return err
				}
				entry.Subsection, _ = changelog.NormalizeSubsection(subsection)
				out.Entries = []changelog.Entry{entry}
				out.Added = 1
			}

			if out.Added > 0 {
				if err := fileutil.WriteAtomic(path, []byte(updated), 0o644); err != nil {
					return utils.HandleCommandError("changelog add", apperror.IO("write", path, err), "component_id", c.ID)
				}
			}
			return output.Print(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&subsection, "subsection", "s", changelog.Changed,
		"Subsection: "+strings.Join(changelog.Subsections, ", "))
	cmd.Flags().BoolVar(&fromCommits, "from-commits", false, "Derive entries from commits since the last release")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project whose refactor policy applies")
	return cmd
}

// commitEntries lists the conventional commits since the component's
// baseline as changelog entries.
func commitEntries(cmd *cobra.Command, t pipeline.Target) ([]changelog.Entry, *git.Baseline, error) {
	c := t.Component
	current := ""
	if info, err := version.Read(c, utils.VersionLookup(t)); err == nil {
		current = info.Version
	}

	client := git.New(app.GetRunner(), c.LocalPath)
	baseline, err := client.DetectBaseline(cmd.Context(), current)
	if err != nil {
		return nil, nil, err
	}
	commits, err := client.CommitsSince(cmd.Context(), baseline.Reference)
	if err != nil {
		return nil, nil, err
	}
	policy := app.GetConfig().App.RefactorPolicyFor(t.Project)
	return changelog.EntriesFromCommits(commits, policy), baseline, nil
}
