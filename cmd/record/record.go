// Package record builds the create, show, list, set and delete commands
// shared by the component, project and server command groups.
package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/store"
)

type entity[T any] interface {
	*T
	domain.Entity
}

// NewCmdCreate creates a record named by the first argument. The id is the
// slug of the name; --json supplies the remaining fields.
func NewCmdCreate[T any, P entity[T]](kind domain.EntityType) *cobra.Command {
	var fields string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: fmt.Sprintf("Create a %s", kind),
		Args:  utils.ExactArgs("name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := map[string]any{}
			if fields != "" {
				if err := utils.DecodeJSON(cmd, "json", fields, &doc); err != nil {
					return err
				}
			}
			delete(doc, "id")
			doc["name"] = args[0]

			raw, err := json.Marshal(doc)
			if err != nil {
				return apperror.JSON("encode "+string(kind), err)
			}
			e := P(new(T))
			if err := json.Unmarshal(raw, e); err != nil {
				return apperror.InvalidJSONInput("json", err)
			}

			s := app.GetStore()
			id := domain.Slugify(args[0])
			if store.Exists[T, P](s, id) {
				return apperror.IDCollision(id, string(kind), string(kind))
			}
			if err := store.Save(s, e); err != nil {
				return utils.HandleCommandError("create "+string(kind), err, "name", args[0])
			}
			return output.Print(cmd, e)
		},
	}

	cmd.Flags().StringVar(&fields, "json", "", `Record fields as JSON ("-" reads stdin, "@file" reads a file)`)
	return cmd
}

// NewCmdShow prints one record. view, when set, decorates the record.
func NewCmdShow[T any, P entity[T]](kind domain.EntityType, view func(P) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show a %s", kind),
		Args:  utils.ExactArgs(string(kind) + "_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := store.Load[T, P](app.GetStore(), args[0])
			if err != nil {
				return err
			}
			if view == nil {
				return output.Print(cmd, e)
			}
			data, err := view(e)
			if err != nil {
				return err
			}
			return output.Print(cmd, data)
		},
	}
}

// NewCmdList prints every record of the type, sorted by id.
func NewCmdList[T any, P entity[T]](kind domain.EntityType) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List %ss", kind),
		Args:    utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := store.List[T, P](app.GetStore())
			if err != nil {
				return err
			}
			return output.Print(cmd, records)
		},
	}
}

// NewCmdSet applies a JSON merge patch to a record.
func NewCmdSet[T any, P entity[T]](kind domain.EntityType) *cobra.Command {
	var (
		patch   string
		replace []string
	)

	cmd := &cobra.Command{
		Use:   "set <id> --json <patch>",
		Short: fmt.Sprintf("Update a %s with a JSON merge patch", kind),
		Long: fmt.Sprintf(`Update a %s with an RFC 7396 JSON merge patch.

Objects merge recursively, null removes a field and arrays are replaced.
Fields named with --replace are overwritten wholesale.`, kind),
		Args: utils.ExactArgs(string(kind) + "_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(patch) == "" {
				return apperror.MissingArgument("--json")
			}
			data, err := utils.ReadJSON(cmd, "json", patch)
			if err != nil {
				return err
			}
			out, err := store.Merge[T, P](app.GetStore(), args[0], data, replace)
			if err != nil {
				return utils.HandleCommandError("set "+string(kind), err, "id", args[0])
			}
			return output.Print(cmd, out)
		},
	}

	cmd.Flags().StringVar(&patch, "json", "", `Merge patch as JSON ("-" reads stdin, "@file" reads a file)`)
	cmd.Flags().StringSliceVar(&replace, "replace", nil, "Fields to replace instead of merge")
	return cmd
}

// Deleted is the data of a delete command.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// NewCmdDelete removes a record. remove, when set, replaces the default
// store delete and receives --force.
func NewCmdDelete[T any, P entity[T]](kind domain.EntityType, remove func(id string, force bool) error) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete a %s", kind),
		Args:    utils.ExactArgs(string(kind) + "_id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if remove != nil {
				err = remove(args[0], force)
			} else {
				err = store.Delete[T, P](app.GetStore(), args[0])
			}
			if err != nil {
				return utils.HandleCommandError("delete "+string(kind), err, "id", args[0])
			}
			return output.Print(cmd, Deleted{ID: args[0], Deleted: true})
		},
	}

	if remove != nil {
		cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even when other records reference it")
	}
	return cmd
}
