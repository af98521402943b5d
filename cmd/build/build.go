// Package build implements the build command.
package build

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/modules"
)

func NewCmdBuild() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "build <component-id>",
		Short: "Build a component locally",
		Long: `Build a component in its local path with its build_command, or with the
build script of an enabled module that claims its artifact. Permissions
under the local path are normalized first.`,
		Args: utils.ExactArgs("component_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := utils.ComponentTarget(args[0], projectID)
			if err != nil {
				return err
			}
			enabled := app.GetRegistry().ForComponent(t.Component, t.Project)
			env := modules.ExecContext{Project: t.Project, Component: t.Component, Step: "build"}.Env()

			res, err := app.NewBuilder().Build(cmd.Context(), t.Component, enabled, env)
			if err != nil {
				err = utils.HandleCommandError("build", err, "component_id", args[0])
				if res == nil {
					return err
				}
				return output.Fail(res, err)
			}
			return output.Print(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project whose modules apply")
	return cmd
}
