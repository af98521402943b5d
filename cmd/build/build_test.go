package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/output"
	"github.com/homeboy-cli/homeboy/cmd/test"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/app"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/store"
	"github.com/homeboy-cli/homeboy/testing/mocks"
)

func setup(t *testing.T) (*mocks.MockRunner, string) {
	t.Helper()
	require.NoError(t, app.InitializeForTesting(t.TempDir()))
	r := &mocks.MockRunner{}
	app.SetRunnerForTesting(r)

	dir := t.TempDir()
	require.NoError(t, store.Save(app.GetStore(), &domain.Component{
		Name:          "theme",
		LocalPath:     dir,
		BuildCommand:  "npm run build",
		BuildArtifact: "dist/*.zip",
	}))
	return r, dir
}

func TestBuild(t *testing.T) {
	r, dir := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))
	older := filepath.Join(dir, "dist", "theme-1.0.0.zip")
	newer := filepath.Join(dir, "dist", "theme-1.1.0.zip")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	env, err := test.RunCommand(NewCmdBuild(), "theme")
	require.NoError(t, err)
	assert.Equal(t, newer, env.Object()["artifact"])

	require.True(t, r.Called("npm run build"))
	for _, c := range r.Calls {
		if c.String() == "sh -c npm run build" {
			assert.Equal(t, dir, c.Dir)
			assert.Equal(t, "theme", c.Env["HOMEBOY_COMPONENT_ID"])
			assert.Equal(t, "build", c.Env["HOMEBOY_STEP"])
		}
	}
}

func TestBuildFailureCarriesOutput(t *testing.T) {
	r, _ := setup(t)
	r.On("npm run build", runner.Result{ExitCode: 2, Stderr: "missing script"})

	_, err := test.RunCommand(NewCmdBuild(), "theme")
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.DeployBuildFailed, appErr.Code)
	assert.Equal(t, apperror.ExitRemote, appErr.ExitCode())

	var failure *output.Failure
	require.True(t, errors.As(err, &failure))
	assert.NotNil(t, failure.Data)
}
