// Package config implements the config command group over homeboy.json.
package config

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/internal/app"
)

// Shown is the data of `config show`: the persisted settings plus the
// values resolved for this invocation.
type Shown struct {
	Paths        config.Paths      `json:"paths"`
	LogLevel     string            `json:"log_level"`
	ColorEnabled bool              `json:"color_enabled"`
	KeyringKey   string            `json:"keyring_key"`
	App          *config.AppConfig `json:"app"`
}

// Updated is the data of `config set`.
type Updated struct {
	Key   string            `json:"key"`
	Value string            `json:"value"`
	App   *config.AppConfig `json:"app"`
}

func NewCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change Homeboy settings",
		Long: `Settings live in homeboy.json in the config root. Environment variables
override the log level and color settings for one invocation.`,
	}

	cmd.AddCommand(newCmdShow())
	cmd.AddCommand(newCmdSet())
	cmd.AddCommand(newCmdKeys())
	return cmd
}

func newCmdShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.GetConfig()
			return output.Print(cmd, Shown{
				Paths:        c.Paths,
				LogLevel:     c.GetLogLevel(),
				ColorEnabled: c.ColorEnabled,
				KeyringKey:   output.MaskSecret(c.KeyringKey),
				App:          c.App,
			})
		},
	}
}

func newCmdSet() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a homeboy.json setting",
		Example: `  homeboy config set permissions.remote_dir_mode g+rwx
  homeboy config set changelog.next_section_aliases "Next, Upcoming"`,
		Args: utils.ExactArgs("key", "value"),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.GetConfig()
			// Apply to a copy so a rejected value leaves the loaded config intact.
			updated, err := config.LoadAppConfig(c.Paths.AppConfig)
			if err != nil {
				return err
			}
			if err := updated.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveAppConfig(c.Paths.AppConfig, updated); err != nil {
				return utils.HandleCommandError("config set", err, "key", args[0])
			}
			c.App = updated
			return output.Print(cmd, Updated{Key: args[0], Value: args[1], App: updated})
		},
	}
}

func newCmdKeys() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the settable keys",
		Args:  utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.Print(cmd, config.Keys())
		},
	}
}
