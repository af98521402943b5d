package output

import (
	"errors"
	"io"
	"log/slog"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
)

// Envelope is the document every command writes to stdout.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   *apperror.Payload `json:"error,omitempty"`
}

// Failure is a command error that still carries a result, such as a
// release run that stopped partway. Both end up in the envelope.
type Failure struct {
	Data any
	Err  error
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail pairs data with err. A nil err yields nil.
func Fail(data any, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Data: data, Err: err}
}

// Write encodes env with a two-space indent and a trailing newline.
func Write(w io.Writer, env Envelope) error {
	data, err := fileutil.MarshalPretty(env)
	if err != nil {
		return apperror.JSON("encode output", err)
	}
	_, err = w.Write(data)
	return err
}

// Print writes a successful envelope around data to the command's stdout.
func Print(cmd *cobra.Command, data any) error {
	return Write(cmd.OutOrStdout(), Envelope{Success: true, Data: data})
}

// Report writes the failure envelope for err and returns the process exit
// code. A broken stdout pipe is not an error.
func Report(w io.Writer, err error) int {
	if err == nil {
		return apperror.ExitSuccess
	}
	if IsBrokenPipe(err) {
		return apperror.ExitSuccess
	}

	env := Envelope{}
	var failure *Failure
	if errors.As(err, &failure) {
		env.Data = failure.Data
		err = failure.Err
	}
	appErr := apperror.As(err)
	payload := appErr.Payload()
	env.Error = &payload

	slog.Debug("Command failed", "code", appErr.Code, "error", err)
	if werr := Write(w, env); werr != nil && !IsBrokenPipe(werr) {
		slog.Error("Failed to write output", "error", werr)
	}
	return appErr.ExitCode()
}

// IsBrokenPipe reports whether err came from writing to a closed pipe.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}
