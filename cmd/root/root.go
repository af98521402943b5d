// Package root implements the command line interface for Homeboy.
package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/build"
	"github.com/homeboy-cli/homeboy/cmd/changelog"
	"github.com/homeboy-cli/homeboy/cmd/cli"
	cmdconfig "github.com/homeboy-cli/homeboy/cmd/config"
	"github.com/homeboy-cli/homeboy/cmd/component"
	"github.com/homeboy-cli/homeboy/cmd/deploy"
	"github.com/homeboy-cli/homeboy/cmd/git"
	"github.com/homeboy-cli/homeboy/cmd/history"
	"github.com/homeboy-cli/homeboy/cmd/keys"
	"github.com/homeboy-cli/homeboy/cmd/module"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/project"
	"github.com/homeboy-cli/homeboy/cmd/release"
	"github.com/homeboy-cli/homeboy/cmd/server"
	"github.com/homeboy-cli/homeboy/cmd/ssh"
	"github.com/homeboy-cli/homeboy/cmd/update"
	"github.com/homeboy-cli/homeboy/cmd/version"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/logging"
)

const versionTemplate = "{\n  \"success\": true,\n  \"data\": {\n    \"version\": \"{{.Version}}\"\n  }\n}\n"

// Execute runs the CLI and exits with the code of the reported outcome.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := NewCmdRoot()
	err := cmd.ExecuteContext(ctx)
	stop()

	os.Exit(output.Report(os.Stdout, normalize(cmd, err)))
}

func NewCmdRoot() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "homeboy",
		Short: "Release and deploy components to remote servers",
		Long: `Homeboy manages the release and deploy lifecycle of components grouped
into projects on SSH-reachable servers: version bumps, changelogs, git tags,
builds, uploads and remote installs.

Every command prints a single JSON document to stdout. Logs go to stderr.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize configuration for CLI with config directory override
			cfg, err := config.NewConfigForCLI(configDir)
			if err != nil {
				var appErr *apperror.Error
				if !errors.As(err, &appErr) {
					err = apperror.Wrap(apperror.ConfigInvalidValue, err, err.Error())
				}
				return err
			}

			// Initialize colors (CLI flag overrides config)
			output.InitColors(!cfg.ColorEnabled || output.NoColor.IsSet())

			// Initialize logging (CLI flag overrides config)
			logLevel := cfg.LogLevel
			if logging.LogLevel.IsSet() {
				logLevel = logging.LogLevel.String()
			}
			logging.InitLogging(logLevel)

			return app.InitializeWithConfig(cfg)
		},
	}

	cmd.PersistentFlags().
		StringVarP(&configDir, "config-dir", "d", "", "Config root (default $XDG_CONFIG_HOME/homeboy)")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")
	cmd.PersistentFlags().Lookup("no-color").NoOptDefVal = "true"
	cmd.SetVersionTemplate(versionTemplate)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperror.InvalidArgument("flags", err.Error(), nil)
	})

	cmd.AddCommand(component.NewCmdComponent())
	cmd.AddCommand(project.NewCmdProject())
	cmd.AddCommand(server.NewCmdServer())
	cmd.AddCommand(module.NewCmdModule())
	cmd.AddCommand(release.NewCmdRelease())
	cmd.AddCommand(version.NewCmdVersion())
	cmd.AddCommand(changelog.NewCmdChangelog())
	cmd.AddCommand(git.NewCmdGit())
	cmd.AddCommand(build.NewCmdBuild())
	cmd.AddCommand(deploy.NewCmdDeploy())
	cmd.AddCommand(cli.NewCmdCLI())
	cmd.AddCommand(ssh.NewCmdSSH())
	cmd.AddCommand(keys.NewCmdKeys())
	cmd.AddCommand(history.NewCmdHistory())
	cmd.AddCommand(cmdconfig.NewCmdConfig())
	cmd.AddCommand(update.NewCmdUpdate())
	return cmd
}

// normalize turns cobra's own argument errors into validation errors.
func normalize(root *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	var failure *output.Failure
	if errors.As(err, &appErr) || errors.As(err, &failure) {
		return err
	}

	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "unknown command "); ok {
		name, _, _ = strings.Cut(name, " for ")
		name = strings.Trim(name, `"`)
		return apperror.InvalidArgument("command", fmt.Sprintf("unknown command '%s'", name), root.SuggestionsFor(name))
	}
	if errors.Is(err, context.Canceled) {
		return apperror.Wrap(apperror.InternalUnexpected, err, "Interrupted")
	}
	return err
}
