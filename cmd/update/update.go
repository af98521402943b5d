// Package update provides the update command, which replaces the running
// Homeboy binary with the latest GitHub release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/utils"
	"github.com/homeboy-cli/homeboy/cmd/version"
	"github.com/homeboy-cli/homeboy/internal/app"
)

// LatestReleaseURL is the GitHub API endpoint of the newest release.
var LatestReleaseURL = "https://api.github.com/repos/homeboy-cli/homeboy/releases/latest"

// executable locates the running binary. Tests replace it.
var executable = os.Executable

type GitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Status is the data of the update command.
type Status struct {
	Current         string `json:"current"`
	Latest          string `json:"latest"`
	UpdateAvailable bool   `json:"update_available"`
	Installed       bool   `json:"installed"`
	Asset           string `json:"asset,omitempty"`
	Path            string `json:"path,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

func NewCmdUpdate() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update Homeboy to the latest release",
		Long: `Check GitHub for a newer Homeboy release and replace the running binary
with the asset built for this platform.

Network checks are disabled when update_check is false in homeboy.json.`,
		Args: utils.ExactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.GetConfig().App.UpdateCheck {
				return apperror.New(apperror.ConfigInvalidValue, "Update checks are disabled").
					WithDetail("field", "update_check").
					WithHint("Enable them with: homeboy config set update_check true")
			}

			release, err := getLatestRelease(cmd.Context())
			if err != nil {
				return utils.HandleCommandError("update", err)
			}
			status := &Status{
				Current:         version.Version,
				Latest:          release.TagName,
				UpdateAvailable: newer(version.Version, release.TagName),
				ReleaseURL:      release.HTMLURL,
			}
			if checkOnly || !status.UpdateAvailable {
				return output.Print(cmd, status)
			}

			if err := installBinary(cmd.Context(), release, status); err != nil {
				return output.Fail(status, utils.HandleCommandError("update", err, "latest", release.TagName))
			}
			return output.Print(cmd, status)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	return cmd
}

// newer reports whether latest is a higher version than current. A current
// version that is not semver, such as a dev build, is always older.
func newer(current, latest string) bool {
	l, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	c, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	return l.GreaterThan(c)
}

// AssetName is the release asset holding the binary for this platform.
func AssetName() string {
	return fmt.Sprintf("homeboy-%s-%s", runtime.GOOS, runtime.GOARCH)
}

func getLatestRelease(ctx context.Context) (*GitHubRelease, error) {
	body, err := fetch(ctx, LatestReleaseURL)
	if err != nil {
		return nil, err
	}
	defer closeBody(body)

	var release GitHubRelease
	if err := json.NewDecoder(body).Decode(&release); err != nil {
		return nil, apperror.JSON("decode release", err)
	}
	if strings.TrimSpace(release.TagName) == "" {
		return nil, apperror.Unexpected("latest release has no tag")
	}
	return &release, nil
}

func installBinary(ctx context.Context, release *GitHubRelease, status *Status) error {
	status.Asset = AssetName()

	var binaryURL string
	for _, asset := range release.Assets {
		if asset.Name == status.Asset {
			binaryURL = asset.BrowserDownloadURL
			break
		}
	}
	if binaryURL == "" {
		return apperror.Newf(apperror.ValidationInvalidArgument, "Release %s has no asset %s", release.TagName, status.Asset).
			WithDetail("field", "asset").
			WithDetail("problem", "not published for this platform").
			WithDetail("tried", []string{status.Asset})
	}

	execPath, err := executable()
	if err != nil {
		return apperror.Wrap(apperror.InternalIOError, err, "Could not determine executable path")
	}
	status.Path = execPath

	// Download next to the binary so the rename stays on one filesystem
	tempFile := execPath + ".tmp"
	if err := download(ctx, binaryURL, tempFile); err != nil {
		removeTemp(tempFile)
		return err
	}
	if err := os.Chmod(tempFile, 0o755); err != nil {
		removeTemp(tempFile)
		return apperror.IO("chmod", tempFile, err)
	}
	if err := os.Rename(tempFile, execPath); err != nil {
		removeTemp(tempFile)
		return apperror.IO("replace", execPath, err)
	}

	status.Installed = true
	slog.Info("Updated Homeboy", "from", status.Current, "to", status.Latest, "path", execPath)
	return nil
}

func fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.InternalUnexpected, err, "invalid URL "+url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.InternalIOError, err, "Failed to reach "+url).MarkRetryable(true)
	}
	if resp.StatusCode != http.StatusOK {
		closeBody(resp.Body)
		return nil, apperror.Newf(apperror.InternalIOError, "%s returned status %d", url, resp.StatusCode).
			WithDetail("status", resp.StatusCode).
			MarkRetryable(resp.StatusCode >= 500)
	}
	return resp.Body, nil
}

func download(ctx context.Context, url, path string) error {
	body, err := fetch(ctx, url)
	if err != nil {
		return err
	}
	defer closeBody(body)

	out, err := os.Create(path)
	if err != nil {
		return apperror.IO("create", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			slog.Warn("Failed to close file", "file_path", path, "error", cerr)
		}
	}()

	if _, err := io.Copy(out, body); err != nil {
		return apperror.IO("write", path, err)
	}
	return nil
}

func closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove temporary file", "file_path", path, "error", err)
	}
}
