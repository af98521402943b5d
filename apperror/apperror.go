// Package apperror defines the closed set of error kinds Homeboy reports,
// their stable exit codes and the JSON shape they take in the output envelope.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code is a stable, dotted error identifier such as "component.not_found".
type Code string

const (
	ConfigMissingKey   Code = "config.missing_key"
	ConfigInvalidJSON  Code = "config.invalid_json"
	ConfigInvalidValue Code = "config.invalid_value"
	ConfigIDCollision  Code = "config.id_collision"

	ValidationMissingArgument Code = "validation.missing_argument"
	ValidationInvalidArgument Code = "validation.invalid_argument"
	ValidationInvalidJSON     Code = "validation.invalid_json"
	ValidationMultipleErrors  Code = "validation.multiple_errors"

	ProjectNotFound   Code = "project.not_found"
	ServerNotFound    Code = "server.not_found"
	ComponentNotFound Code = "component.not_found"
	ModuleNotFound    Code = "module.not_found"
	DocsTopicNotFound Code = "docs.topic_not_found"
	ProjectNoActive   Code = "project.no_active"

	SSHServerInvalid        Code = "ssh.server_invalid"
	SSHIdentityFileNotFound Code = "ssh.identity_file_not_found"
	SSHAuthFailed           Code = "ssh.auth_failed"
	SSHConnectFailed        Code = "ssh.connect_failed"

	RemoteCommandFailed          Code = "remote.command_failed"
	RemoteCommandTimeout         Code = "remote.command_timeout"
	DeployNoComponentsConfigured Code = "deploy.no_components_configured"
	DeployBuildFailed            Code = "deploy.build_failed"
	DeployUploadFailed           Code = "deploy.upload_failed"
	GitCommandFailed             Code = "git.command_failed"

	InternalIOError    Code = "internal.io_error"
	InternalJSONError  Code = "internal.json_error"
	InternalUnexpected Code = "internal.unexpected"
)

// Exit codes returned by the CLI process.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitValidation = 2
	ExitNotFound   = 4
	ExitSSH        = 10
	ExitRemote     = 20
)

// Error is the structured error carried through the core and rendered into
// the envelope's "error" object.
type Error struct {
	Code      Code
	Message   string
	Details   map[string]any
	Hints     []string
	Retryable *bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Payload is the JSON form of an Error inside the output envelope.
type Payload struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	Hints     []string       `json:"hints,omitempty"`
	Retryable *bool          `json:"retryable,omitempty"`
}

// Payload renders e for the envelope.
func (e *Error) Payload() Payload {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return Payload{
		Code:      e.Code,
		Message:   e.Error(),
		Details:   details,
		Hints:     e.Hints,
		Retryable: e.Retryable,
	}
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Payload())
}

// ExitCode maps the error code to the process exit status.
func (e *Error) ExitCode() int {
	return ExitCode(e.Code)
}

// WithHint appends a remediation hint and returns the same error.
func (e *Error) WithHint(hint string) *Error {
	e.Hints = append(e.Hints, hint)
	return e
}

// WithDetail sets a single detail key and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// MarkRetryable flags whether re-running the same command may succeed.
func (e *Error) MarkRetryable(retryable bool) *Error {
	e.Retryable = &retryable
	return e
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Details: map[string]any{}}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, a ...any) *Error {
	return New(code, fmt.Sprintf(format, a...))
}

// Wrap attaches an underlying cause.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// As returns err as an *Error. Foreign errors become internal.unexpected.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(InternalUnexpected, err, err.Error())
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ExitCode implements the stable exit code table.
func ExitCode(code Code) int {
	c := string(code)
	switch {
	case c == "":
		return ExitSuccess
	case strings.HasSuffix(c, ".not_found"), code == DocsTopicNotFound, code == ProjectNoActive:
		return ExitNotFound
	case strings.HasPrefix(c, "validation."), strings.HasPrefix(c, "config."):
		return ExitValidation
	case strings.HasPrefix(c, "ssh."):
		return ExitSSH
	case strings.HasPrefix(c, "remote."), strings.HasPrefix(c, "deploy."), strings.HasPrefix(c, "git."):
		return ExitRemote
	default:
		return ExitInternal
	}
}
