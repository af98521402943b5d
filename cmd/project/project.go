// Package project implements the project command group.
package project

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/record"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/store"
)

// View is a project with its dangling references and active flag.
type View struct {
	*domain.Project
	Active   bool            `json:"active"`
	Findings []store.Finding `json:"findings"`
}

func NewCmdProject() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Projects group components deployed to one server under a base path.",
	}

	cmd.AddCommand(record.NewCmdCreate[domain.Project](domain.EntityProject))
	cmd.AddCommand(record.NewCmdShow[domain.Project](domain.EntityProject, view))
	cmd.AddCommand(record.NewCmdList[domain.Project](domain.EntityProject))
	cmd.AddCommand(record.NewCmdSet[domain.Project](domain.EntityProject))
	cmd.AddCommand(record.NewCmdDelete[domain.Project](domain.EntityProject, nil))
	cmd.AddCommand(NewCmdProjectUse())
	return cmd
}

func view(p *domain.Project) (any, error) {
	return View{
		Project:  p,
		Active:   app.GetConfig().App.ActiveProjectID == p.ID,
		Findings: app.GetStore().Findings(p),
	}, nil
}

// Active is the data of `project use`.
type Active struct {
	ActiveProjectID string `json:"active_project_id"`
	Previous        string `json:"previous,omitempty"`
}

func NewCmdProjectUse() *cobra.Command {
	return &cobra.Command{
		Use:   "use <project-id>",
		Short: "Set the active project",
		Long:  "Commands that take an optional project fall back to the active project.",
		Args:  utils.ExactArgs("project_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.GetStore().Project(args[0])
			if err != nil {
				return err
			}

			cfg := app.GetConfig()
			previous := cfg.App.ActiveProjectID
			cfg.App.ActiveProjectID = p.ID
			if err := config.SaveAppConfig(cfg.Paths.AppConfig, cfg.App); err != nil {
				cfg.App.ActiveProjectID = previous
				return utils.HandleCommandError("project use", err, "project_id", p.ID)
			}
			return output.Print(cmd, Active{ActiveProjectID: p.ID, Previous: previous})
		},
	}
}
