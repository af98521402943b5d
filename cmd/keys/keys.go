// Package keys implements the keys command group over the encrypted keyring.
package keys

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/internal/app"
)

// GlobalScope holds secrets that belong to no project.
const GlobalScope = "global"

// Entry is the data of the keys subcommands.
type Entry struct {
	Scope    string  `json:"scope"`
	Variable string  `json:"variable"`
	Value    *string `json:"value,omitempty"`
	Exists   *bool   `json:"exists,omitempty"`
	Stored   bool    `json:"stored,omitempty"`
	Deleted  *bool   `json:"deleted,omitempty"`
}

// Listed is the data of `keys list`.
type Listed struct {
	Scope     string   `json:"scope"`
	Variables []string `json:"variables"`
}

func NewCmdKeys() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage encrypted secrets",
		Long: `Secrets are stored per scope, encrypted with the key in the config
root's .env file. The scope defaults to the active project, or "global" when
there is none.`,
	}
	cmd.PersistentFlags().String("scope", "", "Keyring scope (default: active project, else global)")

	cmd.AddCommand(newCmdSet())
	cmd.AddCommand(newCmdGet())
	cmd.AddCommand(newCmdExists())
	cmd.AddCommand(newCmdDelete())
	cmd.AddCommand(newCmdList())
	return cmd
}

func scope(cmd *cobra.Command) string {
	s, _ := cmd.Flags().GetString("scope")
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	if active := app.GetConfig().App.ActiveProjectID; active != "" {
		return active
	}
	return GlobalScope
}

func newCmdSet() *cobra.Command {
	return &cobra.Command{
		Use:   "set <variable> <value|->",
		Short: "Store a secret",
		Long:  `Store a secret. A value of "-" reads it from stdin without the trailing newline.`,
		Args:  utils.ExactArgs("variable", "value"),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[1]
			if value == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return apperror.IO("read", "stdin", err)
				}
				value = strings.TrimRight(string(b), "\r\n")
			}

			k, err := app.GetKeyring()
			if err != nil {
				return err
			}
			sc := scope(cmd)
			if err := k.Store(sc, args[0], value); err != nil {
				return utils.HandleCommandError("keys set", err, "scope", sc, "variable", args[0])
			}
			return output.Print(cmd, Entry{Scope: sc, Variable: args[0], Stored: true})
		},
	}
}

func newCmdGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get <variable>",
		Short: "Print a secret",
		Args:  utils.ExactArgs("variable"),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.GetKeyring()
			if err != nil {
				return err
			}
			sc := scope(cmd)
			ok, err := k.Exists(sc, args[0])
			if err != nil {
				return err
			}
			if !ok {
				known, _ := k.Variables(sc)
				return apperror.InvalidArgument("variable",
					fmt.Sprintf("no secret '%s' in scope '%s'", args[0], sc),
					apperror.Suggest(args[0], known, 3))
			}
			value, err := k.Get(sc, args[0])
			if err != nil {
				return utils.HandleCommandError("keys get", err, "scope", sc, "variable", args[0])
			}
			return output.Print(cmd, Entry{Scope: sc, Variable: args[0], Value: &value})
		},
	}
}

func newCmdExists() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <variable>",
		Short: "Report whether a secret is stored",
		Args:  utils.ExactArgs("variable"),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.GetKeyring()
			if err != nil {
				return err
			}
			sc := scope(cmd)
			ok, err := k.Exists(sc, args[0])
			if err != nil {
				return err
			}
			return output.Print(cmd, Entry{Scope: sc, Variable: args[0], Exists: &ok})
		},
	}
}

func newCmdDelete() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <variable>",
		Aliases: []string{"rm"},
		Short:   "Delete a secret",
		Args:    utils.ExactArgs("variable"),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.GetKeyring()
			if err != nil {
				return err
			}
			sc := scope(cmd)
			deleted, err := k.Delete(sc, args[0])
			if err != nil {
				return utils.HandleCommandError("keys delete", err, "scope", sc, "variable", args[0])
			}
			return output.Print(cmd, Entry{Scope: sc, Variable: args[0], Deleted: &deleted})
		},
	}
}

func newCmdList() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the variables stored in a scope",
		Args:    utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.GetKeyring()
			if err != nil {
				return err
			}
			sc := scope(cmd)
			vars, err := k.Variables(sc)
			if err != nil {
				return err
			}
			return output.Print(cmd, Listed{Scope: sc, Variables: vars})
		},
	}
}
