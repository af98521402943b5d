// Package ssh runs commands and copies files on a server by spawning the
// system ssh and scp binaries. Clients are stateless.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/validation"
	"github.com/homeboy-cli/homeboy/runner"
)

// exitConnection is the status ssh itself returns on connection errors.
const exitConnection = 255

// Client talks to one server.
type Client struct {
	runner runner.Runner

	ServerID     string
	Host         string
	User         string
	Port         int
	IdentityFile string
}

// New validates the server record for remote use and resolves its
// identity file.
func New(r runner.Runner, s *domain.Server) (*Client, error) {
	if err := validation.Struct(s.Target()); err != nil {
		e := apperror.Wrap(apperror.SSHServerInvalid, err,
			fmt.Sprintf("Server '%s' is not configured for remote operations: %v", s.ID, err)).
			WithDetail("server_id", s.ID).
			WithHint("Set host and user with: homeboy server set " + s.ID + ` --json '{"host":"...","user":"..."}'`)
		return nil, e
	}

	identity, err := ExpandIdentity(s.IdentityFile)
	if err != nil {
		return nil, apperror.IO("resolve", s.IdentityFile, err)
	}
	if identity != "" {
		if _, err := os.Stat(identity); errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.Newf(apperror.SSHIdentityFileNotFound, "Identity file not found: %s", identity).
				WithDetail("server_id", s.ID).
				WithDetail("path", identity)
		}
	}

	return &Client{
		runner:       r,
		ServerID:     s.ID,
		Host:         s.Host,
		User:         s.User,
		Port:         s.EffectivePort(),
		IdentityFile: identity,
	}, nil
}

// ExpandIdentity expands a leading ~ to the user's home directory.
func ExpandIdentity(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Destination is user@host.
func (c *Client) Destination() string {
	return c.User + "@" + c.Host
}

func (c *Client) options() []string {
	args := []string{"-o", "StrictHostKeyChecking=accept-new"}
	if c.IdentityFile != "" {
		args = append(args, "-i", c.IdentityFile, "-o", "IdentitiesOnly=yes")
	}
	return args
}

func (c *Client) sshArgs(tty bool) []string {
	args := c.options()
	if c.Port != domain.DefaultSSHPort {
		args = append(args, "-p", strconv.Itoa(c.Port))
	}
	if tty {
		args = append(args, "-t")
	} else {
		args = append(args, "-o", "BatchMode=yes")
	}
	return append(args, c.Destination())
}

func (c *Client) scpArgs(recursive bool) []string {
	args := c.options()
	if c.Port != domain.DefaultSSHPort {
		args = append(args, "-P", strconv.Itoa(c.Port))
	}
	// SFTP mode hands the remote path over verbatim; legacy mode would pass
	// it through the remote shell.
	args = append(args, "-s", "-o", "BatchMode=yes")
	if recursive {
		args = append(args, "-r")
	}
	return args
}

// Execute runs command on the server and captures its output. A non-zero
// remote exit is returned in the result; only failures of ssh itself are
// errors.
func (c *Client) Execute(ctx context.Context, command string) (*runner.Result, error) {
	slog.Debug("Executing remote command", "server_id", c.ServerID, "command", command)
	args := append(c.sshArgs(false), command)
	res, err := c.runner.Run(ctx, runner.Command{Name: "ssh", Args: args})
	if err != nil {
		return nil, apperror.Wrap(apperror.SSHConnectFailed, err, "Failed to start ssh").
			WithDetail("server_id", c.ServerID)
	}
	if res.ExitCode == exitConnection && clientDiagnostic(res.Stderr) {
		return res, c.connectionError(res)
	}
	return res, nil
}

// clientMessages are printed by the ssh client itself when it cannot reach
// or log in to the server.
var clientMessages = []string{
	"Permission denied",
	"Too many authentication failures",
	"Connection refused",
	"Connection timed out",
	"Connection closed by",
	"Connection reset by",
	"Could not resolve hostname",
	"Host key verification failed",
	"No route to host",
	"kex_exchange_identification",
}

// clientDiagnostic reports whether stderr carries an ssh client error
// rather than output of the remote command.
func clientDiagnostic(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "ssh:") {
			return true
		}
	}
	for _, m := range clientMessages {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

// Run is Execute that also turns a non-zero remote exit into
// remote.command_failed.
func (c *Client) Run(ctx context.Context, command string) (*runner.Result, error) {
	res, err := c.Execute(ctx, command)
	if err != nil {
		return res, err
	}
	if !res.Success() {
		return res, apperror.RemoteFailure(apperror.CommandFailure{
			Command:  command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   c.ServerID,
		})
	}
	return res, nil
}

// ExecuteInteractive attaches the terminal to a remote shell, or to
// command when one is given, and returns the remote exit code.
func (c *Client) ExecuteInteractive(ctx context.Context, command string) (int, error) {
	args := c.sshArgs(true)
	if command != "" {
		args = append(args, command)
	}
	res, err := c.runner.Run(ctx, runner.Command{Name: "ssh", Args: args, Interactive: true})
	if err != nil {
		return -1, apperror.Wrap(apperror.SSHConnectFailed, err, "Failed to start ssh").
			WithDetail("server_id", c.ServerID)
	}
	return res.ExitCode, nil
}

// UploadFile copies a local file to remote.
func (c *Client) UploadFile(ctx context.Context, local, remote string) error {
	return c.upload(ctx, local, remote, false)
}

// UploadDir copies a local directory tree to remote.
func (c *Client) UploadDir(ctx context.Context, local, remote string) error {
	return c.upload(ctx, local, remote, true)
}

func (c *Client) upload(ctx context.Context, local, remote string, recursive bool) error {
	args := append(c.scpArgs(recursive), local, c.Destination()+":"+remote)
	slog.Debug("Uploading", "server_id", c.ServerID, "local", local, "remote", remote, "recursive", recursive)

	res, err := c.runner.Run(ctx, runner.Command{Name: "scp", Args: args})
	if err != nil {
		return apperror.Wrap(apperror.DeployUploadFailed, err, "Failed to start scp").
			WithDetail("local", local).
			WithDetail("remote", remote)
	}
	if !res.Success() {
		slog.Error("Service operation failed",
			"layer", "ssh",
			"operation", "upload",
			"server_id", c.ServerID,
			"local", local,
			"remote", remote,
			"exit_code", res.ExitCode)
		return apperror.UploadFailed(local, remote, apperror.CommandFailure{
			Command:  "scp " + strings.Join(args, " "),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Target:   c.ServerID,
		})
	}
	return nil
}

func (c *Client) connectionError(res *runner.Result) *apperror.Error {
	stderr := strings.TrimSpace(res.Stderr)
	code := apperror.SSHConnectFailed
	msg := fmt.Sprintf("Could not connect to %s (%s)", c.ServerID, c.Destination())
	if strings.Contains(stderr, "Permission denied") || strings.Contains(stderr, "Too many authentication failures") {
		code = apperror.SSHAuthFailed
		msg = fmt.Sprintf("Authentication to %s (%s) failed", c.ServerID, c.Destination())
	}
	e := apperror.New(code, msg).
		WithDetail("server_id", c.ServerID).
		WithDetail("host", c.Host).
		WithDetail("stderr", stderr)
	if code == apperror.SSHConnectFailed {
		e.MarkRetryable(true)
	}
	return e
}
