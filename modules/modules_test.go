package modules

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/test"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/testing/mocks"
)

func writeModule(t *testing.T, dir, id, name, content string) string {
	t.Helper()
	moduleDir := filepath.Join(dir, id)
	require.NoError(t, os.MkdirAll(moduleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, name), []byte(content), 0o644))
	return moduleDir
}

func TestRegistryLoadsManifests(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "wordpress", "wordpress.json", `{
		"name": "WordPress",
		"cli": {"tool": "wp", "command_template": "wp {{args}}"},
		"build": {"artifact_extensions": [".zip"], "script_names": ["build.sh"]},
		"version_patterns": {"php": "Version:\\s*(\\d+\\.\\d+\\.\\d+)"}
	}`)
	writeModule(t, dir, "gh", "gh.yaml", `
name: GitHub
actions:
  - id: release.publish
    command: gh release create "$HOMEBOY_RELEASE_TAG"
`)
	writeModule(t, dir, "broken", "broken.json", `{not json`)
	writeModule(t, dir, "empty", "README.md", "no manifest here")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))

	r := NewRegistry(dir)
	assert.Equal(t, []string{"gh", "wordpress"}, r.IDs())

	wp, err := r.Get("wordpress")
	require.NoError(t, err)
	assert.Equal(t, "wordpress", wp.ID)
	assert.Equal(t, filepath.Join(dir, "wordpress"), wp.Path)
	assert.False(t, wp.Linked)

	gh, ok := r.Lookup("gh")
	require.True(t, ok)
	action, ok := gh.Action(domain.ActionReleasePublish)
	require.True(t, ok)
	assert.Contains(t, action.Command, "gh release create")

	tool, ok := r.ByCLITool("wp")
	require.True(t, ok)
	assert.Equal(t, "wordpress", tool.ID)
	assert.Equal(t, []string{"wp"}, r.CLITools())
}

func TestRegistryGetSuggests(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "wordpress", "wordpress.json", `{"name": "WordPress"}`)

	_, err := NewRegistry(dir).Get("wordpres")
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.ModuleNotFound, appErr.Code)
	assert.Equal(t, []string{"wordpress"}, appErr.Details["suggestions"])
}

func TestRegistryMissingDir(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nope"))
	all, err := r.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLoadManifestRejectsBadPattern(t *testing.T) {
	dir := t.TempDir()
	moduleDir := writeModule(t, dir, "php", "php.json", `{"version_patterns": {"php": "Version: \\d+"}}`)

	_, err := LoadManifest(moduleDir, "php")
	require.Error(t, err)
	assert.Equal(t, apperror.ConfigInvalidValue, apperror.As(err).Code)
}

func TestRegistryReload(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)
	assert.Empty(t, r.IDs())

	writeModule(t, dir, "node", "node.json", `{"name": "Node"}`)
	assert.Empty(t, r.IDs(), "cache is not refreshed implicitly")

	r.Reload()
	assert.Equal(t, []string{"node"}, r.IDs())
}

func TestForComponentDeduplicates(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"a", "b", "c"} {
		writeModule(t, dir, id, id+".json", `{}`)
	}
	r := NewRegistry(dir)

	c := &domain.Component{Modules: domain.ModuleSettings{"b": {}, "a": {}}}
	p := &domain.Project{Modules: domain.ModuleSettings{"c": {}, "a": {}, "missing": {}}}

	var ids []string
	for _, m := range r.ForComponent(c, p) {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMatchBuild(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "build.sh"), []byte("#!/bin/sh\n"), 0o755))

	zipModule := &domain.Manifest{ID: "wp", Build: &domain.BuildConfig{
		ArtifactExtensions: []string{"zip"},
		ScriptNames:        []string{"missing.sh", "build.sh"},
	}}
	tarModule := &domain.Manifest{ID: "node", Build: &domain.BuildConfig{
		ArtifactExtensions: []string{".tar.gz"},
		ScriptNames:        []string{"build.sh"},
	}}

	tests := []struct {
		name     string
		artifact string
		local    string
		wantID   string
	}{
		{"zip matches", "dist/plugin.ZIP", local, "wp"},
		{"tarball matches", "dist/app.tar.gz", local, "node"},
		{"no extension match", "dist/app.rpm", local, ""},
		{"no local path", "dist/plugin.zip", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Component{BuildArtifact: tt.artifact, LocalPath: tt.local}
			m, script, ok := MatchBuild(c, []*domain.Manifest{zipModule, tarModule})
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, m.ID)
			assert.Equal(t, filepath.Join(local, "build.sh"), script)
		})
	}
}

func TestVersionPattern(t *testing.T) {
	enabled := []*domain.Manifest{
		{ID: "wp", VersionPatterns: map[string]string{".php": `Version:\s*(\S+)`}},
		{ID: "py", VersionPatterns: map[string]string{"py": `__version__ = "(.+)"`}},
	}
	p, ok := VersionPattern(".PHP", enabled)
	require.True(t, ok)
	assert.Equal(t, `Version:\s*(\S+)`, p)

	p, ok = VersionPattern("py", enabled)
	require.True(t, ok)
	assert.Equal(t, `__version__ = "(.+)"`, p)

	_, ok = VersionPattern(".txt", enabled)
	assert.False(t, ok)
}

func TestMergedSettings(t *testing.T) {
	m := &domain.Manifest{ID: "wp", Settings: []domain.SettingSpec{
		{ID: "php_version", Type: domain.SettingString, Default: "8.1"},
		{ID: "multisite", Type: domain.SettingBoolean, Default: false},
		{ID: "workers", Type: domain.SettingNumber},
		{ID: "extra", Type: domain.SettingJSON},
	}}

	t.Run("layers defaults project component", func(t *testing.T) {
		got, err := MergedSettings(m,
			map[string]any{"php_version": "8.2", "workers": float64(2)},
			map[string]any{"workers": float64(4), "extra": map[string]any{"a": 1}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"php_version": "8.2",
			"multisite":   false,
			"workers":     float64(4),
			"extra":       map[string]any{"a": 1},
		}, got)
	})

	t.Run("unknown and mistyped keys", func(t *testing.T) {
		_, err := MergedSettings(m,
			map[string]any{"bogus": 1},
			map[string]any{"multisite": "yes"})
		require.Error(t, err)
		appErr := apperror.As(err)
		assert.Equal(t, apperror.ValidationMultipleErrors, appErr.Code)
	})

	t.Run("single error is returned as is", func(t *testing.T) {
		_, err := MergedSettings(m, nil, map[string]any{"workers": "four"})
		require.Error(t, err)
		appErr := apperror.As(err)
		assert.Equal(t, apperror.ConfigInvalidValue, appErr.Code)
		assert.Equal(t, "component.modules.wp.workers", appErr.Details["field"])
	})
}

func TestExecContextEnv(t *testing.T) {
	x := ExecContext{
		Module:    &domain.Manifest{ID: "gh", Path: "/cfg/modules/gh"},
		Settings:  map[string]any{"draft": true},
		Project:   &domain.Project{ID: "site", BasePath: "/var/www/site"},
		Component: &domain.Component{ID: "my-plugin", LocalPath: "/src/my-plugin"},
		Step:      "publish.gh",
		Skip:      []string{"build", "git.push"},
	}
	env := x.Env()
	assert.Equal(t, "2", env[EnvExecContextVersion])
	assert.Equal(t, "gh", env[EnvModuleID])
	assert.Equal(t, "/cfg/modules/gh", env[EnvModulePath])
	assert.JSONEq(t, `{"draft":true}`, env[EnvSettingsJSON])
	assert.Equal(t, "site", env[EnvProjectID])
	assert.Equal(t, "/var/www/site", env[EnvProjectPath])
	assert.Equal(t, "my-plugin", env[EnvComponentID])
	assert.Equal(t, "/src/my-plugin", env[EnvComponentPath])
	assert.Equal(t, "publish.gh", env[EnvStep])
	assert.Equal(t, "build,git.push", env[EnvSkip])

	bare := ExecContext{Module: &domain.Manifest{ID: "gh"}}.Env()
	assert.Equal(t, "{}", bare[EnvSettingsJSON])
	assert.NotContains(t, bare, EnvProjectID)
	assert.NotContains(t, bare, EnvSkip)
}

func TestReleaseEnv(t *testing.T) {
	rc := domain.NewReleaseContext()
	assert.Empty(t, ReleaseEnv(rc))

	require.NoError(t, rc.SetVersion("1.2.3", "1.2.4"))
	require.NoError(t, rc.SetTag("v1.2.4"))
	require.NoError(t, rc.SetNotes("### Fixed\n- Crash on save"))
	rc.AddArtifact(domain.Artifact{Path: "/a.zip"})
	rc.AddArtifact(domain.Artifact{Path: "/b.zip"})

	env := ReleaseEnv(rc)
	assert.Equal(t, "1.2.4", env[EnvReleaseVersion])
	assert.Equal(t, "1.2.3", env[EnvReleasePreviousVersion])
	assert.Equal(t, "v1.2.4", env[EnvReleaseTag])
	assert.Equal(t, "/a.zip\n/b.zip", env[EnvReleaseArtifacts])
}

func TestMergeEnv(t *testing.T) {
	got := MergeEnv(map[string]string{"A": "1", "B": "1"}, nil, map[string]string{"B": "2"})
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, got)
}

func TestRunRuntime(t *testing.T) {
	m := &domain.Manifest{ID: "local-db", Path: "/cfg/modules/local-db", Runtime: &domain.Runtime{
		RunCommand:   "./run.sh {{modulePath}}",
		SetupCommand: "./setup.sh",
		ReadyCheck:   "./ready.sh {{componentId}}",
		Env:          map[string]string{"PORT": "5432"},
	}}
	x := ExecContext{Module: m, Component: &domain.Component{ID: "api"}}

	t.Run("run renders placeholders and env", func(t *testing.T) {
		r := &mocks.MockRunner{}
		r.On("run.sh", runner.Result{Stdout: "started"})

		res, err := RunRuntime(context.Background(), r, x, RuntimeRun)
		require.NoError(t, err)
		assert.Equal(t, "./run.sh '/cfg/modules/local-db'", res.Command)
		assert.Equal(t, "started", res.Result.Stdout)

		require.Len(t, r.Calls, 1)
		call := r.Calls[0]
		assert.Equal(t, "sh", call.Name)
		assert.Equal(t, m.Path, call.Dir)
		assert.Equal(t, "5432", call.Env["PORT"])
		assert.Equal(t, "local-db", call.Env[EnvModuleID])
	})

	t.Run("setup runs ready check", func(t *testing.T) {
		r := &mocks.MockRunner{}
		r.On("ready.sh", runner.Result{ExitCode: 1, Stderr: "not yet"})

		res, err := RunRuntime(context.Background(), r, x, RuntimeSetup)
		require.Error(t, err)
		assert.Equal(t, apperror.RemoteCommandFailed, apperror.As(err).Code)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.ReadyCheck.ExitCode)
		assert.Equal(t, []string{"sh -c ./setup.sh", "sh -c ./ready.sh 'api'"}, r.CommandLines())
	})

	t.Run("module without runtime", func(t *testing.T) {
		_, err := RunRuntime(context.Background(), &mocks.MockRunner{}, ExecContext{Module: &domain.Manifest{ID: "gh"}}, RuntimeRun)
		require.Error(t, err)
		assert.Equal(t, apperror.ValidationInvalidArgument, apperror.As(err).Code)
	})
}

func TestIDFromSource(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/homeboy-wordpress.git": "homeboy-wordpress",
		"git@github.com:acme/Node_Tools.git":            "node-tools",
		"/home/me/modules/gh/":                          "gh",
		"gh":                                            "gh",
	}
	for in, want := range tests {
		assert.Equal(t, want, IDFromSource(in), in)
	}
}

func TestInstallRejectsInvalidID(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "modules"))
	_, err := r.Install(context.Background(), "https://example.com/acme/tools.git", "Node_Tools")
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.ValidationInvalidArgument, appErr.Code)
	assert.Equal(t, []string{"node-tools"}, appErr.Details["tried"])
}

func manifestJSON(t *testing.T, m map[string]any) test.RepoFile {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return test.RepoFile{Path: m["name"].(string) + ".json", Content: string(data)}
}

func TestInstallAndUpdate(t *testing.T) {
	test.SkipWithoutGit(t)
	source := t.TempDir()
	repo, err := test.InitGitRepo(source, []test.RepoFile{
		manifestJSON(t, map[string]any{"name": "deployer"}),
	})
	require.NoError(t, err)

	r := NewRegistry(filepath.Join(t.TempDir(), "modules"))
	m, err := r.Install(context.Background(), source, "deployer")
	require.NoError(t, err)
	assert.Equal(t, "deployer", m.ID)
	assert.Equal(t, []string{"deployer"}, r.IDs())

	_, err = r.Install(context.Background(), source, "deployer")
	require.Error(t, err)
	assert.Equal(t, apperror.ValidationInvalidArgument, apperror.As(err).Code)

	_, err = test.CommitFiles(repo, "Add script", []test.RepoFile{{Path: "run.sh", Content: "echo hi\n"}})
	require.NoError(t, err)

	res, err := r.Update(context.Background(), "deployer")
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.NotEqual(t, res.FromCommit, res.ToCommit)
	assert.FileExists(t, filepath.Join(r.Dir(), "deployer", "run.sh"))
}

func TestInstallWithoutManifestCleansUp(t *testing.T) {
	test.SkipWithoutGit(t)
	source := t.TempDir()
	_, err := test.InitGitRepo(source, []test.RepoFile{{Path: "README.md", Content: "hi"}})
	require.NoError(t, err)

	r := NewRegistry(filepath.Join(t.TempDir(), "modules"))
	_, err = r.Install(context.Background(), source, "readme")
	require.Error(t, err)
	assert.Equal(t, apperror.ConfigMissingKey, apperror.As(err).Code)
	assert.NoDirExists(t, filepath.Join(r.Dir(), "readme"))
}

func TestLink(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "local-tools.json"), []byte(`{"name":"Local"}`), 0o644))

	r := NewRegistry(filepath.Join(t.TempDir(), "modules"))
	m, err := r.Link(source, "local-tools")
	require.NoError(t, err)
	assert.True(t, m.Linked)

	_, err = r.Update(context.Background(), "local-tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linked")

	_, err = r.Link(source, "other")
	require.Error(t, err, "manifest must be named after the id")
}
