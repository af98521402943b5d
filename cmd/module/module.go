// Package module implements the module command group.
package module

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/modules"
)

// Summary is one row of `module list`.
type Summary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Linked      bool     `json:"linked"`
	CLITool     string   `json:"cli_tool,omitempty"`
	Executable  bool     `json:"executable"`
	Actions     []string `json:"actions"`
}

func summarize(m *domain.Manifest) Summary {
	s := Summary{
		ID:          m.ID,
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Linked:      m.Linked,
		Executable:  m.Runtime != nil,
		Actions:     make([]string, 0, len(m.Actions)),
	}
	if m.CLI != nil {
		s.CLITool = m.CLI.Tool
	}
	for _, a := range m.Actions {
		s.Actions = append(s.Actions, a.ID)
	}
	return s
}

func NewCmdModule() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Manage modules",
		Long: `Modules are directories under the config root whose manifest contributes
build rules, deploy overrides, release actions, version patterns, remote CLI
tools and runtime commands.`,
	}

	cmd.AddCommand(NewCmdModuleList())
	cmd.AddCommand(NewCmdModuleShow())
	cmd.AddCommand(NewCmdModuleInstall())
	cmd.AddCommand(NewCmdModuleUpdate())
	cmd.AddCommand(NewCmdModuleLink())
	cmd.AddCommand(NewCmdModuleRuntime(modules.RuntimeRun, "Run an executable module"))
	cmd.AddCommand(NewCmdModuleRuntime(modules.RuntimeSetup, "Set up an executable module"))
	return cmd
}

func NewCmdModuleList() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed modules",
		Args:    utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := app.GetRegistry().All()
			if err != nil {
				return err
			}
			rows := make([]Summary, 0, len(all))
			for _, m := range all {
				rows = append(rows, summarize(m))
			}
			return output.Print(cmd, rows)
		},
	}
}

func NewCmdModuleShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <module-id>",
		Short: "Show a module manifest",
		Args:  utils.ExactArgs("module_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.GetRegistry().Get(args[0])
			if err != nil {
				return err
			}
			return output.Print(cmd, m)
		},
	}
}

func NewCmdModuleInstall() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "install <git-url>",
		Short: "Install a module from a git repository",
		Args:  utils.ExactArgs("git_url"),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.GetRegistry().Install(cmd.Context(), args[0], id)
			if err != nil {
				return utils.HandleCommandError("module install", err, "git_url", args[0])
			}
			return output.Print(cmd, m)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Module id (defaults to the repository name)")
	return cmd
}

func NewCmdModuleUpdate() *cobra.Command {
	return &cobra.Command{
		Use:   "update <module-id>",
		Short: "Pull the latest commits of an installed module",
		Args:  utils.ExactArgs("module_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.GetRegistry().Update(cmd.Context(), args[0])
			if err != nil {
				return utils.HandleCommandError("module update", err, "module_id", args[0])
			}
			return output.Print(cmd, res)
		},
	}
}

func NewCmdModuleLink() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "link <path>",
		Short: "Link a local module directory",
		Long:  "Link a local module directory. Linked modules are edited in place and cannot be updated.",
		Args:  utils.ExactArgs("path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.GetRegistry().Link(args[0], id)
			if err != nil {
				return utils.HandleCommandError("module link", err, "path", args[0])
			}
			return output.Print(cmd, m)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Module id (defaults to the directory name)")
	return cmd
}

// NewCmdModuleRuntime builds `module run` and `module setup`.
func NewCmdModuleRuntime(action modules.RuntimeAction, short string) *cobra.Command {
	var projectID, componentID string

	cmd := &cobra.Command{
		Use:   string(action) + " <module-id>",
		Short: short,
		Long: `Execute the module's runtime command in the module directory with the
module exec environment. --project and --component add their ids, paths and
module settings to the environment.`,
		Args: utils.ExactArgs("module_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.GetRegistry().Get(args[0])
			if err != nil {
				return err
			}
			x := modules.ExecContext{Module: m}
			s := app.GetStore()
			if projectID != "" {
				if x.Project, err = s.Project(projectID); err != nil {
					return err
				}
			}
			if componentID != "" {
				if x.Component, err = s.Component(componentID); err != nil {
					return err
				}
			}
			if x.Settings, err = modules.SettingsFor(m, x.Project, x.Component); err != nil {
				return err
			}

			res, err := modules.RunRuntime(cmd.Context(), app.GetRunner(), x, action)
			if err != nil {
				err = utils.HandleCommandError("module "+string(action), err, "module_id", m.ID)
				if res == nil {
					return err
				}
				return output.Fail(res, err)
			}
			return output.Print(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project to run for")
	cmd.Flags().StringVar(&componentID, "component", "", "Component to run for")
	return cmd
}
