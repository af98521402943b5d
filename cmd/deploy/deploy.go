// Package deploy implements the deploy command.
package deploy

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/deploy"
	"github.com/homeboy-cli/homeboy/internal/app"
)

func NewCmdDeploy() *cobra.Command {
	var skipBuild bool

	cmd := &cobra.Command{
		Use:   "deploy <project-id> [component-id...]",
		Short: "Build and deploy components to a project's server",
		Long: `Build each selected component (all of the project's components by
default), upload its artifact to the project's server and install it.

Components deploy one after another. A failing component does not stop the
others; the command fails when any component failed.`,
		Args: utils.Args([]string{"project_id"}, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.NewDeployService().Deploy(cmd.Context(), deploy.Options{
				ProjectID:    args[0],
				ComponentIDs: args[1:],
				SkipBuild:    skipBuild,
			})
			if err != nil {
				return utils.HandleCommandError("deploy", err, "project_id", args[0])
			}
			if result.Failed > 0 {
				return output.Fail(result, result.FirstError())
			}
			return output.Print(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Deploy the existing artifact without building")
	return cmd
}
