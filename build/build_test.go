package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/testing/mocks"
)

func touch(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestResolveCommand(t *testing.T) {
	local := t.TempDir()
	touch(t, filepath.Join(local, "build.sh"), time.Now())

	plain := &domain.Manifest{ID: "wp", Path: "/mods/wp", Build: &domain.BuildConfig{
		ArtifactExtensions: []string{".zip"},
		ScriptNames:        []string{"build.sh"},
	}}
	templated := &domain.Manifest{ID: "node", Path: "/mods/node", Build: &domain.BuildConfig{
		ArtifactExtensions: []string{".zip"},
		ScriptNames:        []string{"build.sh"},
		CommandTemplate:    "bash {{script}} --release",
	}}

	t.Run("explicit command wins", func(t *testing.T) {
		c := &domain.Component{ID: "p", LocalPath: local, BuildArtifact: "p.zip", BuildCommand: "make dist"}
		cmd, err := ResolveCommand(c, []*domain.Manifest{plain})
		require.NoError(t, err)
		assert.Equal(t, "make dist", cmd.Script)
		assert.Equal(t, SourceComponent, cmd.Source)
	})

	t.Run("module script", func(t *testing.T) {
		c := &domain.Component{ID: "p", LocalPath: local, BuildArtifact: "p.zip"}
		cmd, err := ResolveCommand(c, []*domain.Manifest{plain})
		require.NoError(t, err)
		assert.Equal(t, "sh '"+filepath.Join(local, "build.sh")+"'", cmd.Script)
		assert.Equal(t, "wp", cmd.ModuleID)
	})

	t.Run("module template", func(t *testing.T) {
		c := &domain.Component{ID: "p", LocalPath: local, BuildArtifact: "p.zip"}
		cmd, err := ResolveCommand(c, []*domain.Manifest{templated})
		require.NoError(t, err)
		assert.Equal(t, "bash '"+filepath.Join(local, "build.sh")+"' --release", cmd.Script)
	})

	t.Run("nothing to run", func(t *testing.T) {
		c := &domain.Component{ID: "p", LocalPath: local, BuildArtifact: "p.tgz"}
		_, err := ResolveCommand(c, []*domain.Manifest{plain})
		require.Error(t, err)
		appErr := apperror.As(err)
		assert.Equal(t, apperror.DeployBuildFailed, appErr.Code)
		assert.NotEmpty(t, appErr.Hints)
	})
}

func TestResolveArtifactPicksNewestMatch(t *testing.T) {
	local := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(local, "dist", "plugin-1.0.0.zip"), now.Add(-time.Hour))
	touch(t, filepath.Join(local, "dist", "plugin-1.0.1.zip"), now)
	require.NoError(t, os.MkdirAll(filepath.Join(local, "dist", "plugin-dir.zip"), 0o755))

	c := &domain.Component{ID: "p", LocalPath: local, BuildArtifact: "dist/plugin-*.zip"}
	got, err := ResolveArtifact(c)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(local, "dist", "plugin-1.0.1.zip"), got)
}

func TestResolveArtifactErrors(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(local, "dist", "only-dir.zip"), 0o755))

	tests := []struct {
		name     string
		artifact string
		code     apperror.Code
	}{
		{"no matches", "dist/*.tgz", apperror.ValidationInvalidArgument},
		{"directories do not count", "dist/*.zip", apperror.ValidationInvalidArgument},
		{"missing literal", "dist/app.zip", apperror.ValidationInvalidArgument},
		{"not configured", "", apperror.ConfigMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveArtifact(&domain.Component{ID: "p", LocalPath: local, BuildArtifact: tt.artifact})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.As(err).Code)
		})
	}
}

func TestResolveArtifactLiteral(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(local, "build"), 0o755))

	got, err := ResolveArtifact(&domain.Component{ID: "p", LocalPath: local, BuildArtifact: "build"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(local, "build"), got)
}

func TestBuild(t *testing.T) {
	local := t.TempDir()
	touch(t, filepath.Join(local, "dist", "app.zip"), time.Now())

	r := &mocks.MockRunner{}
	r.On("make", runner.Result{Stdout: "built"})
	b := &Builder{Runner: r, DirMode: "g+rwx", FileMode: "g+rw"}

	c := &domain.Component{ID: "app", LocalPath: local, BuildCommand: "make", BuildArtifact: "dist/app.zip"}
	res, err := b.Build(context.Background(), c, nil, map[string]string{"HOMEBOY_COMPONENT_ID": "app"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(local, "dist", "app.zip"), res.Artifact)
	assert.Equal(t, "built", res.Output.Stdout)

	lines := r.CommandLines()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "-type d -exec chmod 'g+rwx'")
	assert.Contains(t, lines[1], "-type f -exec chmod 'g+rw'")
	assert.Equal(t, "sh -c make", lines[2])
	assert.Equal(t, local, r.Calls[2].Dir)
	assert.Equal(t, "app", r.Calls[2].Env["HOMEBOY_COMPONENT_ID"])
}

func TestBuildFailure(t *testing.T) {
	r := &mocks.MockRunner{}
	r.On("make", runner.Result{ExitCode: 2, Stderr: "missing target"})
	b := &Builder{Runner: r}

	c := &domain.Component{ID: "app", LocalPath: t.TempDir(), BuildCommand: "make"}
	res, err := b.Build(context.Background(), c, nil, nil)
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.DeployBuildFailed, appErr.Code)
	assert.Equal(t, "missing target", appErr.Details["stderr"])
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Output.ExitCode)
	assert.Len(t, r.Calls, 1, "no permission fix without configured modes")
}
