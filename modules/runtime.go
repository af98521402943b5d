package modules

import (
	"context"
	"log/slog"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/shell"
)

// RuntimeAction selects one of a module's runtime commands.
type RuntimeAction string

const (
	RuntimeRun   RuntimeAction = "run"
	RuntimeSetup RuntimeAction = "setup"
)

// RuntimeResult is the captured output of a runtime command.
type RuntimeResult struct {
	ModuleID   string         `json:"module_id"`
	Action     RuntimeAction  `json:"action"`
	Command    string         `json:"command"`
	Result     *runner.Result `json:"result"`
	ReadyCheck *runner.Result `json:"ready_check,omitempty"`
}

// RunRuntime executes the module's run or setup command in its directory
// with the exec environment plus runtime.env. After setup, the optional
// ready check must also succeed.
func RunRuntime(ctx context.Context, r runner.Runner, x ExecContext, action RuntimeAction) (*RuntimeResult, error) {
	m := x.Module
	if m.Runtime == nil {
		return nil, apperror.InvalidArgument("module", "module '"+m.ID+"' is not executable (no runtime)", nil)
	}

	template := m.Runtime.RunCommand
	if action == RuntimeSetup {
		template = m.Runtime.SetupCommand
	}
	if template == "" {
		return nil, apperror.InvalidArgument("module", "module '"+m.ID+"' has no "+string(action)+" command", nil)
	}

	vars := shell.Vars{shell.VarModulePath: m.Path}
	if x.Component != nil {
		vars[shell.VarComponentID] = x.Component.ID
	}
	if x.Project != nil {
		vars[shell.VarProjectID] = x.Project.ID
	}
	command := shell.Render(template, vars.Quoted())
	env := MergeEnv(x.Env(), m.Runtime.Env)

	out := &RuntimeResult{ModuleID: m.ID, Action: action, Command: command}
	res, err := runShell(ctx, r, m, command, env)
	if err != nil {
		return nil, err
	}
	out.Result = res
	if !res.Success() {
		return out, apperror.RemoteFailure(apperror.CommandFailure{
			Command: command, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr, Target: "local",
		})
	}

	if action == RuntimeSetup && m.Runtime.ReadyCheck != "" {
		check := shell.Render(m.Runtime.ReadyCheck, vars.Quoted())
		ready, err := runShell(ctx, r, m, check, env)
		if err != nil {
			return nil, err
		}
		out.ReadyCheck = ready
		if !ready.Success() {
			return out, apperror.RemoteFailure(apperror.CommandFailure{
				Command: check, ExitCode: ready.ExitCode, Stdout: ready.Stdout, Stderr: ready.Stderr, Target: "local",
			}).WithHint("Module setup finished but its ready check failed")
		}
	}
	return out, nil
}

func runShell(ctx context.Context, r runner.Runner, m *domain.Manifest, command string, env map[string]string) (*runner.Result, error) {
	slog.Debug("Running module command", "module_id", m.ID, "command", command)
	cmd := runner.Shell(command)
	cmd.Dir = m.Path
	cmd.Env = env
	res, err := r.Run(ctx, cmd)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "modules",
			"operation", "run_command",
			"module_id", m.ID,
			"error", err)
		return nil, apperror.Wrap(apperror.InternalIOError, err, "Failed to start module command")
	}
	return res, nil
}
