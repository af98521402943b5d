// Package utils provides helpers shared by Homeboy's CLI commands.
package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/pipeline"
	"github.com/homeboy-cli/homeboy/version"
)

// HandleCommandError logs a failed command operation and returns err
// unchanged so the root command can report it.
func HandleCommandError(operation string, err error, context ...any) error {
	slog.Error("Command failed", append([]any{"operation", operation, "error", err}, context...)...)
	return err
}

// Args requires the named positional arguments and accepts up to max in
// total. A negative max accepts any number.
func Args(required []string, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < len(required) {
			return apperror.MissingArgument(required[len(args)]).
				WithHint("Usage: " + cmd.UseLine())
		}
		if max >= 0 && len(args) > max {
			return apperror.InvalidArgument("args",
				fmt.Sprintf("accepts at most %d argument(s), received %d", max, len(args)),
				args[max:])
		}
		return nil
	}
}

// ExactArgs requires exactly the named positional arguments.
func ExactArgs(names ...string) cobra.PositionalArgs {
	return Args(names, len(names))
}

// ReadJSON resolves a --json value: "-" reads stdin, "@path" reads a file,
// anything else is the document itself. The result must be valid JSON.
func ReadJSON(cmd *cobra.Command, field, value string) ([]byte, error) {
	var data []byte
	switch {
	case value == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, apperror.IO("read", "stdin", err)
		}
		data = b
	case strings.HasPrefix(value, "@"):
		path := strings.TrimPrefix(value, "@")
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, apperror.IO("read", path, err)
		}
		data = b
	default:
		data = []byte(value)
	}
	if !json.Valid(data) {
		var v any
		return nil, apperror.InvalidJSONInput(field, json.Unmarshal(data, &v))
	}
	return data, nil
}

// DecodeJSON reads a --json value into v.
func DecodeJSON(cmd *cobra.Command, field, value string, v any) error {
	data, err := ReadJSON(cmd, field, value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperror.InvalidJSONInput(field, err)
	}
	return nil
}

// ProjectID returns explicit when set, else the active project.
func ProjectID(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if active := app.GetConfig().App.ActiveProjectID; active != "" {
		return active, nil
	}
	return "", apperror.NoActiveProject()
}

// ComponentTarget loads a component and the project it resolves through:
// the named project, else the active project when it owns the component,
// else the only project using it.
func ComponentTarget(componentID, projectID string) (pipeline.Target, error) {
	s := app.GetStore()
	c, err := s.Component(componentID)
	if err != nil {
		return pipeline.Target{}, err
	}
	if projectID != "" {
		p, err := s.Project(projectID)
		if err != nil {
			return pipeline.Target{}, err
		}
		return pipeline.Target{Component: c, Project: p}, nil
	}
	p, err := s.ResolveComponentProject(c.ID, app.GetConfig().App.ActiveProjectID)
	if err != nil {
		return pipeline.Target{}, err
	}
	return pipeline.Target{Component: c, Project: p}, nil
}

// VersionLookup resolves version patterns from the modules enabled for t.
func VersionLookup(t pipeline.Target) version.PatternLookup {
	enabled := app.GetRegistry().ForComponent(t.Component, t.Project)
	return func(ext string) (string, bool) {
		return modules.VersionPattern(ext, enabled)
	}
}
