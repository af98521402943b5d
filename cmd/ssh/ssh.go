// Package ssh implements the ssh command.
package ssh

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/ssh"
	"github.com/homeboy-cli/homeboy/store"
)

// Executed is the data of a one-off remote command.
type Executed struct {
	ServerID string `json:"server_id"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Session is the data of a finished interactive session.
type Session struct {
	ServerID string `json:"server_id"`
	ExitCode int    `json:"exit_code"`
}

func NewCmdSSH() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh <project-id|server-id> [command...]",
		Short: "Open a shell or run a command on a server",
		Long: `Connect to a server by its id or by the id of a project bound to it.

Without a command an interactive session is attached to the terminal. With a
command its output is captured and printed; a non-zero exit fails.`,
		Example: `  homeboy ssh shop
  homeboy ssh prod df -h`,
		Args: utils.Args([]string{"target"}, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := resolveServer(args[0])
			if err != nil {
				return err
			}
			client, err := ssh.New(app.GetRunner(), server)
			if err != nil {
				return err
			}

			command := strings.Join(args[1:], " ")
			if command == "" {
				code, err := client.ExecuteInteractive(cmd.Context(), "")
				if err != nil {
					return utils.HandleCommandError("ssh", err, "server_id", server.ID)
				}
				return output.Print(cmd, Session{ServerID: server.ID, ExitCode: code})
			}

			res, err := client.Run(cmd.Context(), command)
			if res == nil {
				return utils.HandleCommandError("ssh", err, "server_id", server.ID)
			}
			data := executed(server.ID, command, res)
			if err != nil {
				return output.Fail(data, utils.HandleCommandError("ssh", err, "server_id", server.ID))
			}
			return output.Print(cmd, data)
		},
	}

	cmd.Flags().SetInterspersed(false)
	return cmd
}

// resolveServer treats id as a project first and as a server otherwise.
func resolveServer(id string) (*domain.Server, error) {
	s := app.GetStore()
	if store.Exists[domain.Project](s, id) {
		p, err := s.Project(id)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.ServerID) == "" {
			return nil, apperror.Newf(apperror.ConfigMissingKey, "Project '%s' has no server_id", p.ID).
				WithDetail("project_id", p.ID)
		}
		return s.Server(p.ServerID)
	}
	if store.Exists[domain.Server](s, id) {
		return s.Server(id)
	}

	projects, _ := s.IDs(domain.EntityProject)
	servers, _ := s.IDs(domain.EntityServer)
	return nil, apperror.NotFound(apperror.ServerNotFound, "Project or server", id, append(projects, servers...))
}

func executed(serverID, command string, res *runner.Result) Executed {
	return Executed{
		ServerID: serverID,
		Command:  command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}
