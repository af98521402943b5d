package apperror

import (
	"fmt"
	"strings"
)

// NotFound builds a "<kind>.not_found" error with up to three suggestions
// drawn from known ids.
func NotFound(code Code, kind, id string, known []string) *Error {
	e := Newf(code, "%s '%s' not found", kind, id)
	e.Details["id"] = id
	suggestions := Suggest(id, known, 3)
	e.Details["suggestions"] = suggestions
	if len(suggestions) > 0 {
		e.Hints = append(e.Hints, fmt.Sprintf("Did you mean: %s?", strings.Join(suggestions, ", ")))
	}
	return e
}

// NoActiveProject is returned when a command needs a project and none was
// given or configured.
func NoActiveProject() *Error {
	return New(ProjectNoActive, "No project specified and no active project set").
		WithHint("Pass a project id or run 'homeboy project use <id>'")
}

// MissingArgument reports a required argument that was not supplied.
func MissingArgument(name string) *Error {
	e := Newf(ValidationMissingArgument, "Missing required argument: %s", name)
	e.Details["argument"] = name
	return e
}

// InvalidArgument reports a rejected argument value.
func InvalidArgument(field, problem string, tried []string) *Error {
	e := Newf(ValidationInvalidArgument, "Invalid argument '%s': %s", field, problem)
	e.Details["field"] = field
	e.Details["problem"] = problem
	if tried == nil {
		tried = []string{}
	}
	e.Details["tried"] = tried
	return e
}

// InvalidValue reports a config field holding an unacceptable value.
func InvalidValue(field string, value any, reason string) *Error {
	e := Newf(ConfigInvalidValue, "Invalid value for '%s': %s", field, reason)
	e.Details["field"] = field
	e.Details["value"] = value
	e.Details["reason"] = reason
	return e
}

// InvalidConfigJSON reports an unparseable config file.
func InvalidConfigJSON(path string, err error) *Error {
	e := Wrap(ConfigInvalidJSON, err, fmt.Sprintf("Invalid JSON in %s: %v", path, err))
	e.Details["path"] = path
	return e
}

// InvalidJSONInput reports unparseable JSON supplied by the caller.
func InvalidJSONInput(field string, err error) *Error {
	e := Wrap(ValidationInvalidJSON, err, fmt.Sprintf("Invalid JSON for %s: %v", field, err))
	e.Details["field"] = field
	return e
}

// IDCollision reports an id already used by a record of another type.
func IDCollision(id, entityType, existingType string) *Error {
	e := Newf(ConfigIDCollision, "Id '%s' for %s collides with an existing %s", id, entityType, existingType)
	e.Details["id"] = id
	e.Details["entity_type"] = entityType
	e.Details["existing_type"] = existingType
	return e
}

// Multiple folds several validation errors into one.
func Multiple(errs []*Error) *Error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, 0, len(errs))
	items := make([]map[string]any, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Message)
		items = append(items, map[string]any{"code": err.Code, "message": err.Message, "details": err.Details})
	}
	e := Newf(ValidationMultipleErrors, "%d validation errors: %s", len(errs), strings.Join(msgs, "; "))
	e.Details["errors"] = items
	return e
}

// IO wraps a filesystem failure.
func IO(op, path string, err error) *Error {
	e := Wrap(InternalIOError, err, fmt.Sprintf("Failed to %s %s: %v", op, path, err))
	e.Details["operation"] = op
	e.Details["path"] = path
	return e
}

// JSON wraps an encode/decode failure that is not caused by user input.
func JSON(context string, err error) *Error {
	return Wrap(InternalJSONError, err, fmt.Sprintf("JSON error (%s): %v", context, err))
}

// Unexpected reports an internal invariant failure.
func Unexpected(format string, a ...any) *Error {
	return Newf(InternalUnexpected, format, a...)
}

// CommandFailure describes a subprocess that exited non-zero.
type CommandFailure struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Target   string
}

func (f CommandFailure) details(e *Error) *Error {
	e.Details["command"] = f.Command
	e.Details["exit_code"] = f.ExitCode
	e.Details["stdout"] = f.Stdout
	e.Details["stderr"] = f.Stderr
	if f.Target != "" {
		e.Details["target"] = f.Target
	}
	return e
}

// RemoteFailure reports a non-zero exit of a command run over SSH.
func RemoteFailure(f CommandFailure) *Error {
	msg := fmt.Sprintf("Remote command failed with exit code %d", f.ExitCode)
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += ": " + s
	}
	return f.details(New(RemoteCommandFailed, msg))
}

// GitFailure reports a non-zero exit of a git subprocess.
func GitFailure(f CommandFailure) *Error {
	msg := fmt.Sprintf("git command failed: %s", f.Command)
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += ": " + s
	}
	return f.details(New(GitCommandFailed, msg))
}

// BuildFailed reports a failing build command.
func BuildFailed(f CommandFailure) *Error {
	msg := fmt.Sprintf("Build failed with exit code %d", f.ExitCode)
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += ": " + s
	}
	return f.details(New(DeployBuildFailed, msg))
}

// UploadFailed reports a failing scp transfer.
func UploadFailed(local, remote string, f CommandFailure) *Error {
	e := f.details(Newf(DeployUploadFailed, "Upload of %s to %s failed", local, remote))
	e.Details["local"] = local
	e.Details["remote"] = remote
	return e.MarkRetryable(true)
}
