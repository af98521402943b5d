package keys

import (
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/cmd/test"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/internal/app"
)

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, app.InitializeForTesting(t.TempDir()))
}

func TestKeysLifecycle(t *testing.T) {
	setup(t)

	env, err := test.RunCommand(NewCmdKeys(), "set", "DB_PASSWORD", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "global", env.Object()["scope"])
	assert.Equal(t, true, env.Object()["stored"])

	env, err = test.RunCommand(NewCmdKeys(), "get", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", env.Object()["value"])

	env, err = test.RunCommand(NewCmdKeys(), "exists", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, true, env.Object()["exists"])

	env, err = test.RunCommand(NewCmdKeys(), "list")
	require.NoError(t, err)
	assert.Equal(t, []any{"DB_PASSWORD"}, env.Object()["variables"])

	env, err = test.RunCommand(NewCmdKeys(), "delete", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, true, env.Object()["deleted"])

	env, err = test.RunCommand(NewCmdKeys(), "exists", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, false, env.Object()["exists"])

	env, err = test.RunCommand(NewCmdKeys(), "rm", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, false, env.Object()["deleted"])
}

func TestKeysPersistGeneratedKey(t *testing.T) {
	setup(t)

	_, err := test.RunCommand(NewCmdKeys(), "set", "TOKEN", "abc")
	require.NoError(t, err)

	values, err := godotenv.Read(app.GetConfig().Paths.EnvFile)
	require.NoError(t, err)
	assert.NotEmpty(t, values[config.EnvKeyringKey])
}

func TestKeysScope(t *testing.T) {
	setup(t)
	app.GetConfig().App.ActiveProjectID = "shop"

	_, err := test.RunCommand(NewCmdKeys(), "set", "API_KEY", "from-shop")
	require.NoError(t, err)
	_, err = test.RunCommand(NewCmdKeys(), "set", "API_KEY", "from-global", "--scope", "global")
	require.NoError(t, err)

	env, err := test.RunCommand(NewCmdKeys(), "get", "API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "shop", env.Object()["scope"])
	assert.Equal(t, "from-shop", env.Object()["value"])

	env, err = test.RunCommand(NewCmdKeys(), "get", "API_KEY", "--scope", "global")
	require.NoError(t, err)
	assert.Equal(t, "from-global", env.Object()["value"])
}

func TestKeysSetFromStdin(t *testing.T) {
	setup(t)

	cmd := NewCmdKeys()
	cmd.SetIn(strings.NewReader("s3cret\n"))
	_, err := test.RunCommand(cmd, "set", "TOKEN", "-")
	require.NoError(t, err)

	env, err := test.RunCommand(NewCmdKeys(), "get", "TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", env.Object()["value"])
}

func TestKeysErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code apperror.Code
	}{
		{"get missing", []string{"get", "NOPE"}, apperror.ValidationInvalidArgument},
		{"set without value", []string{"set", "TOKEN"}, apperror.ValidationMissingArgument},
		{"unusable scope", []string{"exists", "TOKEN", "--scope", "!!!"}, apperror.ValidationInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			_, err := test.RunCommand(NewCmdKeys(), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.As(err).Code)
		})
	}
}
