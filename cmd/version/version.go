// Package version implements the version command group.
package version

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/version"
)

// Build-time variables (set via -ldflags)
var (
	Version = "dev" // Version of the Homeboy binary
)

// Bumped is the data of `version bump`.
type Bumped struct {
	ComponentID string `json:"component_id"`
	DryRun      bool   `json:"dry_run"`
	*version.Change
}

func NewCmdVersion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Read and bump component versions",
		Long: `Read and bump the version held in a component's version targets.

The first target is authoritative; every other target must hold the same
version before a bump is written.`,
	}

	cmd.AddCommand(NewCmdVersionShow())
	cmd.AddCommand(NewCmdVersionBump())
	return cmd
}

func NewCmdVersionShow() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "show <component-id>",
		Short: "Show the version of a component",
		Args:  utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := utils.ComponentTarget(args[0], projectID)
			if err != nil {
				return err
			}
			info, err := version.Read(target.Component, utils.VersionLookup(target))
			if err != nil {
				return err
			}
			return output.Print(cmd, info)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project to resolve module version patterns through")
	return cmd
}

func NewCmdVersionBump() *cobra.Command {
	var (
		projectID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "bump <component-id> <patch|minor|major>",
		Short: "Increment the version of a component",
		Long: `Increment the version in every version target of a component.

Only the version files are written. Use 'homeboy release run' to also
finalize the changelog, commit and tag.`,
		Args: utils.ExactArgs("component_id", "bump_type"),
		RunE: func(cmd *cobra.Command, args []string) error {
			bump, err := version.ParseBumpType(args[1])
			if err != nil {
				return err
			}
			target, err := utils.ComponentTarget(args[0], projectID)
			if err != nil {
				return err
			}

			change, err := version.Prepare(target.Component, utils.VersionLookup(target), bump)
			if err != nil {
				return err
			}
			if !dryRun {
				if err := change.Apply(); err != nil {
					return utils.HandleCommandError("version bump", err, "component_id", args[0])
				}
				slog.Info("Version bumped", "component_id", args[0], "old", change.Old, "new", change.New)
			}
			return output.Print(cmd, Bumped{ComponentID: target.Component.ID, DryRun: dryRun, Change: change})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project to resolve module version patterns through")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the new version without writing")
	return cmd
}
