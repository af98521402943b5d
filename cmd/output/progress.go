package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/pipeline"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormatStep renders one finished release step as a progress line.
func FormatStep(s *pipeline.StepResult) string {
	switch s.Status {
	case domain.StepStatusOK:
		return PrintMessage(Success, "ok      %s (%dms)", s.ID, s.DurationMS)
	case domain.StepStatusSkipped:
		return PrintMessage(Muted, "skipped %s: %s", s.ID, s.Reason)
	default:
		msg := s.Reason
		if s.Error != nil {
			msg = s.Error.Message
		}
		return PrintMessage(Error, "failed  %s: %s", s.ID, msg)
	}
}

// StepProgress prints each finished step to w.
func StepProgress(w io.Writer) pipeline.Progress {
	return func(s *pipeline.StepResult) {
		fmt.Fprint(w, FormatStep(s))
	}
}

// PlanTable renders the steps of a release plan.
func PlanTable(plan *pipeline.Plan) (string, error) {
	data := make([][]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		data = append(data, []string{
			s.ID,
			string(s.Status),
			strings.Join(s.Needs, ", "),
			truncateString(strings.Join(s.Missing, "; "), 72),
		})
	}
	table, err := PrintTable([]string{"Step", "Status", "Needs", "Missing"}, data)
	if err != nil {
		return "", fmt.Errorf("printing plan table: %w", err)
	}
	return table, nil
}

// CommitTable renders commits with short hashes.
func CommitTable(commits []domain.Commit) (string, error) {
	if len(commits) == 0 {
		return PrintMessage(Plain, "No commits found."), nil
	}
	data := make([][]string, 0, len(commits))
	for _, c := range commits {
		data = append(data, []string{formatCommitHash(c.Hash), string(c.Category), truncateString(c.Subject, 72)})
	}
	table, err := PrintTable([]string{"Commit", "Category", "Subject"}, data)
	if err != nil {
		return "", fmt.Errorf("printing commit table: %w", err)
	}
	return table, nil
}

// RunTable renders recorded release and deploy runs, newest first.
func RunTable(runs []*domain.Run) (string, error) {
	if len(runs) == 0 {
		return PrintMessage(Plain, "No runs recorded."), nil
	}
	data := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		if r.DryRun {
			status += " (dry run)"
		}
		data = append(data, []string{
			formatCommitHash(r.ID.String()),
			string(r.Kind),
			r.ComponentID,
			r.Version,
			status,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table, err := PrintTable([]string{"Run", "Kind", "Component", "Version", "Status", "Started"}, data)
	if err != nil {
		return "", fmt.Errorf("printing run table: %w", err)
	}
	return table, nil
}
