package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/store"
)

func wpManifest() *domain.Manifest {
	return &domain.Manifest{
		ID: "wordpress",
		CLI: &domain.CLIConfig{
			Tool:               "wp",
			CommandTemplate:    "{{cliPath}} --url={{domain}} {{args}}",
			WorkingDirTemplate: "{{sitePath}}",
			SettingsFlags:      map[string]string{"skip_plugins": "--skip-plugins"},
		},
		Settings: []domain.SettingSpec{
			{ID: "cli_path", Type: domain.SettingString},
			{ID: "skip_plugins", Type: domain.SettingString},
		},
	}
}

func TestToolCommand(t *testing.T) {
	three := 3
	p := &domain.Project{
		ID:         "shop",
		Domain:     "shop.example.com",
		BasePath:   "/var/www/shop",
		SubTargets: []domain.SubTarget{{Name: "blog", Domain: "blog.example.com", Number: &three}},
	}

	tests := []struct {
		name      string
		project   *domain.Project
		subTarget string
		args      []string
		wantCmd   string
		wantDir   string
		code      apperror.Code
	}{
		{
			name:    "main domain",
			project: p,
			args:    []string{"plugin", "list"},
			wantCmd: "'wp' --url='shop.example.com' plugin list",
			wantDir: "/var/www/shop",
		},
		{
			name:      "sub-target domain",
			project:   p,
			subTarget: "Blog",
			args:      []string{"option", "get", "home page"},
			wantCmd:   "'wp' --url='blog.example.com' option get 'home page'",
			wantDir:   "/var/www/shop",
		},
		{
			name: "settings become flags",
			project: &domain.Project{
				ID:       "shop",
				Domain:   "shop.example.com",
				BasePath: "/var/www/shop",
				Modules: domain.ModuleSettings{"wordpress": {
					"cli_path":     "/usr/local/bin/wp",
					"skip_plugins": "cache",
				}},
			},
			wantCmd: "'/usr/local/bin/wp' --url='shop.example.com'  --skip-plugins=cache",
			wantDir: "/var/www/shop",
		},
		{
			name:      "unknown sub-target",
			project:   p,
			subTarget: "blgo",
			code:      apperror.ValidationInvalidArgument,
		},
		{
			name:    "undeclared setting",
			project: &domain.Project{ID: "shop", Modules: domain.ModuleSettings{"wordpress": {"nope": "x"}}},
			code:    apperror.ConfigInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, dir, err := ToolCommand(wpManifest(), tt.project, tt.subTarget, tt.args)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, apperror.As(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestToolCommandWithoutCLISection(t *testing.T) {
	_, _, err := ToolCommand(&domain.Manifest{ID: "bare"}, &domain.Project{ID: "p"}, "", nil)
	assert.True(t, apperror.HasCode(err, apperror.ConfigMissingKey))
}

func installWordPress(t *testing.T, f *fixture) {
	t.Helper()
	dir := filepath.Join(f.paths.Modules, "wordpress")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := `{"id":"wordpress","cli":{"tool":"wp","command_template":"wp --url={{domain}} {{args}}","working_dir_template":"{{sitePath}}"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wordpress.json"), []byte(manifest), 0o644))
}

func TestServiceRunTool(t *testing.T) {
	f := newFixture(t)
	installWordPress(t, f)
	require.NoError(t, store.Save(f.store, &domain.Project{
		ID: "site", Name: "Site", ServerID: "prod", Domain: "example.com", BasePath: "/var/www/site",
	}))
	f.remote.ExecuteFunc = func(ctx context.Context, command string) (*runner.Result, error) {
		return &runner.Result{Stdout: "Success\n"}, nil
	}

	res, err := f.service.RunTool(context.Background(), ToolOptions{Tool: "wp", ProjectID: "site", Args: []string{"cache", "flush"}})
	require.NoError(t, err)
	assert.Equal(t, "wp --url='example.com' cache flush", res.Command)
	assert.Equal(t, "/var/www/site", res.WorkingDir)
	assert.Equal(t, "Success\n", res.Stdout)
	assert.Equal(t, []string{"cd '/var/www/site' && wp --url='example.com' cache flush"}, f.remote.Commands)
}

func TestServiceRunToolErrors(t *testing.T) {
	f := newFixture(t)
	installWordPress(t, f)
	require.NoError(t, store.Save(f.store, &domain.Project{ID: "site", Name: "Site", ServerID: "prod"}))
	require.NoError(t, store.Save(f.store, &domain.Project{ID: "local", Name: "Local"}))

	_, err := f.service.RunTool(context.Background(), ToolOptions{Tool: "pw", ProjectID: "site"})
	appErr := apperror.As(err)
	assert.Equal(t, apperror.ModuleNotFound, appErr.Code)

	_, err = f.service.RunTool(context.Background(), ToolOptions{Tool: "wp", ProjectID: "local"})
	assert.True(t, apperror.HasCode(err, apperror.ConfigMissingKey))

	f.remote.ExecuteFunc = func(ctx context.Context, command string) (*runner.Result, error) {
		return &runner.Result{ExitCode: 1, Stderr: "Error: not installed"}, nil
	}
	res, err := f.service.RunTool(context.Background(), ToolOptions{Tool: "wp", ProjectID: "site", Args: []string{"core", "version"}})
	require.Error(t, err)
	assert.Equal(t, apperror.RemoteCommandFailed, apperror.As(err).Code)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "Error: not installed", res.Stderr)
}
