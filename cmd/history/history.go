// Package history implements the history command over recorded release
// and deploy runs.
package history

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/repository"
)

func NewCmdHistory() *cobra.Command {
	var (
		componentID string
		projectID   string
		kind        string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded release and deploy runs",
		Long: `List recorded release and deploy runs, newest first, or show one run
with its steps when a run id is given.`,
		Example: `  homeboy history --component api --kind release
  homeboy history 3f2b9c1e-5a7d-4c1b-9e0f-2a6b8d4c7e10`,
		Args: utils.Args(nil, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := app.GetHistory()
			if repo == nil {
				return apperror.New(apperror.InternalIOError, "Run history is unavailable").
					WithDetail("path", app.GetConfig().Paths.HistoryDB).
					WithHint("Check the log for why history.db could not be opened")
			}

			if len(args) == 1 {
				return show(cmd, repo, args[0])
			}

			filter := repository.RunFilter{ComponentID: componentID, ProjectID: projectID, Limit: limit}
			if kind != "" {
				k, err := domain.ParseRunKind(kind)
				if err != nil {
					return apperror.InvalidArgument("kind", err.Error(), []string{
						domain.RunKindRelease.String(), domain.RunKindDeploy.String(),
					})
				}
				filter.Kind = k
			}
			if limit < 0 {
				return apperror.InvalidArgument("limit", "must not be negative", nil)
			}

			runs, err := repo.List(filter)
			if err != nil {
				return apperror.Wrap(apperror.InternalIOError, err, "Failed to read run history")
			}
			if output.IsTerminal(cmd.ErrOrStderr()) {
				if table, err := output.RunTable(runs); err == nil {
					fmt.Fprint(cmd.ErrOrStderr(), table)
				}
			}
			return output.Print(cmd, runs)
		},
	}

	cmd.Flags().StringVar(&componentID, "component", "", "Only runs of this component")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Only runs for this project")
	cmd.Flags().StringVar(&kind, "kind", "", "Only runs of this kind (release or deploy)")
	cmd.Flags().IntVarP(&limit, "limit", "n", repository.DefaultListLimit, "Maximum number of runs")
	return cmd
}

func show(cmd *cobra.Command, repo repository.RunRepository, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return apperror.InvalidArgument("run_id", "not a valid run id", []string{raw})
	}
	run, err := repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.InvalidArgument("run_id", "no run recorded with this id", []string{raw})
	}
	if err != nil {
		return apperror.Wrap(apperror.InternalIOError, err, "Failed to read run history")
	}
	return output.Print(cmd, run)
}
