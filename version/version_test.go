package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{DefaultPattern, false},
		{JSONPattern, false},
		{`Version:\s*(?:v)?(\S+)`, false},
		{`Version: \d+`, true},
		{`(\d+)\.(\d+)`, true},
		{`(unclosed`, true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := ValidatePattern(tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolvePattern(t *testing.T) {
	lookup := func(ext string) (string, bool) {
		if ext == ".php" {
			return `Version:\s*(\d+\.\d+\.\d+)`, true
		}
		return "", false
	}
	assert.Equal(t, `v=(\S+)`, ResolvePattern("plugin.php", `v=(\S+)`, lookup))
	assert.Equal(t, `Version:\s*(\d+\.\d+\.\d+)`, ResolvePattern("plugin.php", "", lookup))
	assert.Equal(t, JSONPattern, ResolvePattern("package.json", "", lookup))
	assert.Equal(t, DefaultPattern, ResolvePattern("VERSION", "", lookup))
	assert.Equal(t, DefaultPattern, ResolvePattern("lib.rb", "", nil))
}

func TestIncrement(t *testing.T) {
	tests := []struct {
		in   string
		bump BumpType
		want string
	}{
		{"1.2.3", BumpPatch, "1.2.4"},
		{"1.2.3", BumpMinor, "1.3.0"},
		{"1.2.3", BumpMajor, "2.0.0"},
		{"0.0.9", BumpPatch, "0.0.10"},
		{"9.99.99", BumpMinor, "9.100.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in+"/"+string(tt.bump), func(t *testing.T) {
			got, err := Increment(tt.in, tt.bump)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			cmp, err := Compare(got, tt.in)
			require.NoError(t, err)
			assert.Equal(t, 1, cmp)
		})
	}
}

func TestIncrementRejectsInvalid(t *testing.T) {
	for _, in := range []string{"1.2", "1.2.3.4", "v1.2.3", "1.2.x", "1.2.3-beta", ""} {
		_, err := Increment(in, BumpPatch)
		require.Error(t, err, in)
		assert.Equal(t, apperror.ValidationInvalidArgument, apperror.As(err).Code)
	}
	_, err := Increment("1.2.3", BumpType("huge"))
	assert.Error(t, err)
}

func TestParseBumpType(t *testing.T) {
	b, err := ParseBumpType("minor")
	require.NoError(t, err)
	assert.Equal(t, BumpMinor, b)

	_, err = ParseBumpType("micro")
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plugin.php", "<?php\n/*\n * Plugin Name: Mine\n * Version: 1.2.3\n */\n")
	writeFile(t, dir, "package.json", "{\n  \"name\": \"mine\",\n  \"version\": \"1.2.3\"\n}\n")

	c := &domain.Component{ID: "mine", LocalPath: dir, VersionTargets: []domain.VersionTarget{
		{File: "plugin.php", Pattern: `Version:\s*(\d+\.\d+\.\d+)`},
		{File: "package.json"},
	}}
	info, err := Read(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", info.Version)
	require.Len(t, info.Targets, 2)
	assert.Equal(t, filepath.Join(dir, "package.json"), info.Targets[1].Path)
	assert.Equal(t, JSONPattern, info.Targets[1].Pattern)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "conflict.txt", "a 1.0.0\nb 1.0.1\n")
	writeFile(t, dir, "none.txt", "no version here\n")
	writeFile(t, dir, "noversion.json", `{"name": "x"}`)

	tests := []struct {
		name string
		file string
		code apperror.Code
	}{
		{"conflicting versions", "conflict.txt", apperror.ValidationInvalidArgument},
		{"no match", "none.txt", apperror.ValidationInvalidArgument},
		{"json without version", "noversion.json", apperror.ValidationInvalidArgument},
		{"missing file", "missing.txt", apperror.ValidationInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Component{ID: "x", LocalPath: dir, VersionTargets: []domain.VersionTarget{{File: tt.file}}}
			_, err := Read(c, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.As(err).Code)
		})
	}

	_, err := Read(&domain.Component{ID: "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.ConfigMissingKey, apperror.As(err).Code)
}

func TestPrepareAndApply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plugin.php", " * Version: 1.2.3\ndefine('MINE_VERSION', '1.2.3');\n")
	writeFile(t, dir, "package.json", "{\n    \"name\": \"mine\",\n    \"version\": \"1.2.3\",\n    \"deps\": {\"version\": \"0.0.1\"}\n}\n")

	c := &domain.Component{ID: "mine", LocalPath: dir, VersionTargets: []domain.VersionTarget{
		{File: "plugin.php"},
		{File: "package.json"},
	}}

	change, err := Prepare(c, nil, BumpPatch)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", change.Old)
	assert.Equal(t, "1.2.4", change.New)
	assert.Equal(t, 2, change.Writes[0].Replacements)

	assert.Contains(t, readFile(t, dir, "plugin.php"), "1.2.3", "nothing is written before Apply")

	require.NoError(t, change.Apply())
	assert.Equal(t, " * Version: 1.2.4\ndefine('MINE_VERSION', '1.2.4');\n", readFile(t, dir, "plugin.php"))
	assert.Equal(t,
		"{\n    \"name\": \"mine\",\n    \"version\": \"1.2.4\",\n    \"deps\": {\"version\": \"0.0.1\"}\n}\n",
		readFile(t, dir, "package.json"))
}

func TestPrepareMismatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plugin.php", "Version: 1.2.3\n")
	writeFile(t, dir, "readme.txt", "Stable tag: 1.2.2\n")

	c := &domain.Component{ID: "mine", LocalPath: dir, VersionTargets: []domain.VersionTarget{
		{File: "plugin.php"},
		{File: "readme.txt"},
	}}

	_, err := Prepare(c, nil, BumpPatch)
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.InternalUnexpected, appErr.Code)
	assert.Equal(t, "Version mismatch in readme.txt: found 1.2.2, expected 1.2.3", appErr.Message)
	assert.Equal(t, "Version: 1.2.3\n", readFile(t, dir, "plugin.php"))
}

func TestPrepareUsesLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "style.css", "Theme Name: X\nVersion: 2.0.0\nRequires PHP: 7.4.0\n")

	c := &domain.Component{ID: "theme", LocalPath: dir, VersionTargets: []domain.VersionTarget{{File: "style.css"}}}
	lookup := func(ext string) (string, bool) {
		return `Version:\s*(\d+\.\d+\.\d+)`, ext == ".css"
	}

	change, err := Prepare(c, lookup, BumpMajor)
	require.NoError(t, err)
	require.NoError(t, change.Apply())
	assert.Equal(t, "Theme Name: X\nVersion: 3.0.0\nRequires PHP: 7.4.0\n", readFile(t, dir, "style.css"))
}
