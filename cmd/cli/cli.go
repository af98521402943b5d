// Package cli implements the cli command, which runs a module-provided
// tool such as wp or drush on a project's server.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/deploy"
	"github.com/homeboy-cli/homeboy/internal/app"
)

func NewCmdCLI() *cobra.Command {
	var subTarget string

	cmd := &cobra.Command{
		Use:   "cli <tool> <project-id> [args...]",
		Short: "Run a module CLI tool on a project's server",
		Long: `Run a remote CLI tool contributed by a module. The module's command
template receives the project's domain, base path and the quoted args, and
runs over SSH in the module's working directory.

Flags after the project id are passed to the tool unchanged.`,
		Example: `  homeboy cli wp shop plugin list --status=active
  homeboy cli --sub-target blog wp shop option get home`,
		Args: utils.Args([]string{"tool", "project_id"}, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.NewDeployService().RunTool(cmd.Context(), deploy.ToolOptions{
				Tool:      args[0],
				ProjectID: args[1],
				SubTarget: subTarget,
				Args:      args[2:],
			})
			if err != nil {
				err = utils.HandleCommandError("cli", err, "tool", args[0], "project_id", args[1])
				if res == nil {
					return err
				}
				return output.Fail(res, err)
			}
			return output.Print(cmd, res)
		},
	}

	cmd.Flags().StringVar(&subTarget, "sub-target", "", "Use the domain of this project sub-target")
	cmd.Flags().SetInterspersed(false)
	return cmd
}
