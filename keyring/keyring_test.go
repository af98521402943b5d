package keyring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
)

func newKeyring(t *testing.T) *Keyring {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	k, err := New(t.TempDir(), key)
	require.NoError(t, err)
	return k
}

func TestGenerateKey(t *testing.T) {
	key1, err := GenerateKey()
	require.NoError(t, err)
	key2, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)
}

func TestNew(t *testing.T) {
	valid, err := GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", valid, false},
		{"empty key", "", true},
		{"invalid key", "invalid-key", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := New(t.TempDir(), tt.key)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.InternalUnexpected))
				assert.Nil(t, k)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStoreGetDelete(t *testing.T) {
	k := newKeyring(t)

	require.NoError(t, k.Store("project:site", "DB_PASSWORD", "s3cret with spaces"))
	require.NoError(t, k.Store("project:site", "API_TOKEN", ""))

	got, err := k.Get("project:site", "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "s3cret with spaces", got)

	got, err = k.Get("project:site", "API_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	exists, err := k.Exists("project:site", "DB_PASSWORD")
	require.NoError(t, err)
	assert.True(t, exists)

	vars, err := k.Variables("project:site")
	require.NoError(t, err)
	assert.Equal(t, []string{"API_TOKEN", "DB_PASSWORD"}, vars)

	removed, err := k.Delete("project:site", "DB_PASSWORD")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = k.Delete("project:site", "DB_PASSWORD")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = k.Get("project:site", "DB_PASSWORD")
	assert.True(t, apperror.HasCode(err, apperror.InternalUnexpected))
}

func TestScopeFileIsEncrypted(t *testing.T) {
	k := newKeyring(t)
	require.NoError(t, k.Store("Server Prod", "PASS", "plaintext-value"))

	path := filepath.Join(k.Dir(), "server-prod.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "plaintext-value"))

	_, err = k.Delete("Server Prod", "PASS")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty scopes are removed")
}

func TestWrongKeyCannotDecrypt(t *testing.T) {
	k := newKeyring(t)
	require.NoError(t, k.Store("s", "v", "value"))

	other, err := GenerateKey()
	require.NoError(t, err)
	k2, err := New(k.Dir(), other)
	require.NoError(t, err)

	_, err = k2.Get("s", "v")
	assert.True(t, apperror.HasCode(err, apperror.InternalUnexpected))
}

func TestInvalidScopeAndVariable(t *testing.T) {
	k := newKeyring(t)
	assert.True(t, apperror.HasCode(k.Store("!!!", "v", "x"), apperror.ValidationInvalidArgument))
	assert.True(t, apperror.HasCode(k.Store("s", " ", "x"), apperror.ValidationInvalidArgument))

	exists, err := k.Exists("never-written", "v")
	require.NoError(t, err)
	assert.False(t, exists)
}
