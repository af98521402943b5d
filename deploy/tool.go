package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/shell"
)

// CLIPathSetting is the module setting that overrides {{cliPath}}.
const CLIPathSetting = "cli_path"

// ToolOptions selects a module CLI tool invocation.
type ToolOptions struct {
	Tool      string
	ProjectID string
	SubTarget string
	Args      []string
}

// ToolResult is the captured output of a remote tool run.
type ToolResult struct {
	ProjectID  string `json:"project_id"`
	Tool       string `json:"tool"`
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir,omitempty"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// ToolCommand renders a module's cli.command_template for a project and
// returns the command and the remote working directory.
func ToolCommand(m *domain.Manifest, p *domain.Project, subTarget string, args []string) (string, string, error) {
	if m.CLI == nil {
		return "", "", apperror.Newf(apperror.ConfigMissingKey, "Module '%s' has no cli section", m.ID).
			WithDetail("module_id", m.ID)
	}

	host := p.Domain
	if subTarget != "" {
		st, ok := p.SubTarget(subTarget)
		if !ok {
			names := make([]string, 0, len(p.SubTargets))
			for _, s := range p.SubTargets {
				names = append(names, s.Name)
			}
			return "", "", apperror.InvalidArgument("sub_target",
				fmt.Sprintf("project '%s' has no sub-target '%s'", p.ID, subTarget),
				apperror.Suggest(subTarget, names, 3))
		}
		host = st.Domain
	}

	settings, err := modules.SettingsFor(m, p, nil)
	if err != nil {
		return "", "", err
	}
	cliPath := m.CLI.Tool
	if v, ok := settings[CLIPathSetting].(string); ok && strings.TrimSpace(v) != "" {
		cliPath = v
	}

	vars := shell.Vars{
		shell.VarProjectID: p.ID,
		shell.VarDomain:    host,
		shell.VarSitePath:  p.BasePath,
		shell.VarCLIPath:   cliPath,
		shell.VarBasePath:  p.BasePath,
	}
	quoted := vars.Quoted()
	quoted[shell.VarArgs] = shell.QuoteAll(args)

	command := shell.Render(m.CLI.CommandTemplate, quoted)
	ids := make([]string, 0, len(m.CLI.SettingsFlags))
	for id := range m.CLI.SettingsFlags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v, ok := settings[id]
		if !ok || v == nil {
			continue
		}
		value := fmt.Sprint(v)
		if value == "" {
			continue
		}
		command += " " + m.CLI.SettingsFlags[id] + "=" + shell.Quote(value)
	}

	dir := strings.TrimSpace(shell.Render(m.CLI.WorkingDirTemplate, vars))
	return command, dir, nil
}

// RunTool runs a module CLI tool on the project's server. A non-zero remote
// exit is returned together with the captured result.
func (s *Service) RunTool(ctx context.Context, opts ToolOptions) (*ToolResult, error) {
	m, ok := s.Registry.ByCLITool(opts.Tool)
	if !ok {
		return nil, apperror.NotFound(apperror.ModuleNotFound, "CLI tool", opts.Tool, s.Registry.CLITools())
	}
	p, server, err := s.projectServer(opts.ProjectID)
	if err != nil {
		return nil, err
	}
	command, dir, err := ToolCommand(m, p, opts.SubTarget, opts.Args)
	if err != nil {
		return nil, err
	}
	remote, err := s.Connect(server)
	if err != nil {
		return nil, err
	}

	full := shell.InDir(dir, command)
	res, err := remote.Execute(ctx, full)
	if err != nil {
		return nil, err
	}
	out := &ToolResult{
		ProjectID:  p.ID,
		Tool:       opts.Tool,
		Command:    command,
		WorkingDir: dir,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
	if !res.Success() {
		return out, apperror.RemoteFailure(apperror.CommandFailure{
			Command:  full,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   server.ID,
		})
	}
	return out, nil
}
