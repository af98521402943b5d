// Package release implements the release command group.
package release

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/pipeline"
	"github.com/homeboy-cli/homeboy/version"
)

// RunData is the data of `release run`.
type RunData struct {
	ComponentID string            `json:"component_id"`
	Result      *pipeline.Outcome `json:"result"`
}

type options struct {
	projectID string
	bump      string
	path      string
	skip      []string
	dryRun    bool
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.projectID, "project", "p", "", "Project to resolve the component through")
	cmd.Flags().StringVar(&o.bump, "bump", string(version.BumpPatch), "Version increment: patch, minor or major")
	cmd.Flags().StringVar(&o.path, "path", "", "Use this local path instead of the component's local_path")
	cmd.Flags().StringSliceVar(&o.skip, "skip", nil, `Steps to disable ("publish" disables every publish step)`)
}

func (o *options) pipeline() (pipeline.Options, error) {
	bump, err := version.ParseBumpType(o.bump)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{Bump: bump, DryRun: o.dryRun, PathOverride: o.path, Skip: o.skip}, nil
}

func NewCmdRelease() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Plan and run component releases",
		Long: `Release a component: bump its version, finalize the changelog, commit,
tag, build, package, publish and clean up. Steps the component or its
modules cannot support are reported as missing and skipped.`,
	}

	cmd.AddCommand(NewCmdReleasePlan())
	cmd.AddCommand(NewCmdReleaseRun())
	return cmd
}

func NewCmdReleasePlan() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "plan <component-id>",
		Short: "Show the release steps of a component",
		Args:  utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.pipeline()
			if err != nil {
				return err
			}
			target, err := utils.ComponentTarget(args[0], o.projectID)
			if err != nil {
				return err
			}

			planner := pipeline.Planner{Registry: app.GetRegistry()}
			plan := planner.Plan(target, opts)

			if stderr := cmd.ErrOrStderr(); output.IsTerminal(stderr) {
				if table, err := output.PlanTable(plan); err == nil {
					fmt.Fprint(stderr, table)
				}
			}
			return output.Print(cmd, plan)
		},
	}

	o.addFlags(cmd)
	return cmd
}

func NewCmdReleaseRun() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "run <component-id>",
		Short: "Release a component",
		Long: `Release a component. The run stops at the first failing step unless the
step is listed in the component's release.continue_on_error.`,
		Args: utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.pipeline()
			if err != nil {
				return err
			}
			target, err := utils.ComponentTarget(args[0], o.projectID)
			if err != nil {
				return err
			}

			var progress pipeline.Progress
			if stderr := cmd.ErrOrStderr(); output.IsTerminal(stderr) {
				progress = output.StepProgress(stderr)
			}

			outcome, err := app.NewReleaseEngine(progress).Run(cmd.Context(), target, opts)
			data := RunData{ComponentID: target.Component.ID, Result: outcome}
			if err != nil {
				return output.Fail(data, utils.HandleCommandError("release run", err, "component_id", args[0]))
			}
			return output.Print(cmd, data)
		},
	}

	o.addFlags(cmd)
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Compute every change without writing, committing or publishing")
	return cmd
}
