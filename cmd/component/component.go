// Package component implements the component command group.
package component

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/record"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
)

// View is a component together with the projects that use it.
type View struct {
	*domain.Component
	Projects []string `json:"projects"`
}

func NewCmdComponent() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "component",
		Short: "Manage components",
		Long:  "Components are deployable units with a local source tree, version targets and a remote install path.",
	}

	cmd.AddCommand(record.NewCmdCreate[domain.Component](domain.EntityComponent))
	cmd.AddCommand(record.NewCmdShow[domain.Component](domain.EntityComponent, view))
	cmd.AddCommand(record.NewCmdList[domain.Component](domain.EntityComponent))
	cmd.AddCommand(record.NewCmdSet[domain.Component](domain.EntityComponent))
	cmd.AddCommand(record.NewCmdDelete[domain.Component](domain.EntityComponent, func(id string, force bool) error {
		return app.GetStore().DeleteComponent(id, force)
	}))
	return cmd
}

func view(c *domain.Component) (any, error) {
	users, err := app.GetStore().ProjectsUsing(c.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, p := range users {
		ids = append(ids, p.ID)
	}
	return View{Component: c, Projects: ids}, nil
}
