// Package server implements the server command group.
package server

import (
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/cmd/record"
	"github.com/homeboy-cli/homeboy/domain"
)

func NewCmdServer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage servers",
		Long:  "Servers are SSH endpoints that projects deploy to.",
	}

	cmd.AddCommand(record.NewCmdCreate[domain.Server](domain.EntityServer))
	cmd.AddCommand(record.NewCmdShow[domain.Server](domain.EntityServer, nil))
	cmd.AddCommand(record.NewCmdList[domain.Server](domain.EntityServer))
	cmd.AddCommand(record.NewCmdSet[domain.Server](domain.EntityServer))
	cmd.AddCommand(record.NewCmdDelete[domain.Server](domain.EntityServer, nil))
	return cmd
}
