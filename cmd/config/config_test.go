package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/test"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/internal/app"
)

func TestConfigShow(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, app.InitializeForTesting(root))
	app.GetConfig().KeyringKey = "abcdefghijklmnop"

	env, err := test.RunCommand(NewCmdConfig(), "show")
	require.NoError(t, err)
	data := env.Object()
	assert.Equal(t, root, data["paths"].(map[string]any)["root"])
	assert.Equal(t, "abc**********nop", data["keyring_key"])
	assert.Equal(t, "silent", data["log_level"])

	appCfg := data["app"].(map[string]any)
	assert.Equal(t, "g+rwx", appCfg["permissions"].(map[string]any)["remote_dir_mode"])
}

func TestConfigSet(t *testing.T) {
	require.NoError(t, app.InitializeForTesting(t.TempDir()))

	env, err := test.RunCommand(NewCmdConfig(), "set", "changelog.next_section_aliases", "Next, Upcoming")
	require.NoError(t, err)
	assert.Equal(t, "changelog.next_section_aliases", env.Object()["key"])

	saved, err := config.LoadAppConfig(app.GetConfig().Paths.AppConfig)
	require.NoError(t, err)
	assert.Equal(t, []string{"Next", "Upcoming"}, saved.Changelog.NextSectionAliases)
	assert.Equal(t, []string{"Next", "Upcoming"}, app.GetConfig().App.Changelog.NextSectionAliases)
}

func TestConfigSetErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code apperror.Code
	}{
		{"unknown key", []string{"set", "log_levl", "debug"}, apperror.ValidationInvalidArgument},
		{"bad mode", []string{"set", "permissions.remote_dir_mode", "everything"}, apperror.ConfigInvalidValue},
		{"bad bool", []string{"set", "update_check", "sometimes"}, apperror.ConfigInvalidValue},
		{"missing value", []string{"set", "log_level"}, apperror.ValidationMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, app.InitializeForTesting(t.TempDir()))
			_, err := test.RunCommand(NewCmdConfig(), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.As(err).Code)
			assert.True(t, app.GetConfig().App.UpdateCheck)
		})
	}

	t.Run("unknown key suggests", func(t *testing.T) {
		require.NoError(t, app.InitializeForTesting(t.TempDir()))
		_, err := test.RunCommand(NewCmdConfig(), "set", "log_levl", "debug")
		require.Error(t, err)
		assert.Contains(t, apperror.As(err).Details["tried"], "log_level")
	})
}

func TestConfigKeys(t *testing.T) {
	require.NoError(t, app.InitializeForTesting(t.TempDir()))

	env, err := test.RunCommand(NewCmdConfig(), "keys")
	require.NoError(t, err)
	assert.Contains(t, env.List(), "permissions.remote_dir_mode")
}
