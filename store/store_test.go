package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.Ensure())
	return New(paths)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("id", "my-plugin"))
	assert.True(t, apperror.HasCode(ValidateID("id", ""), apperror.ValidationMissingArgument))
	assert.True(t, apperror.HasCode(ValidateID("id", "../etc"), apperror.ValidationInvalidArgument))
	assert.True(t, apperror.HasCode(ValidateID("id", "Upper"), apperror.ValidationInvalidArgument))
}

func TestSaveLoadComponent(t *testing.T) {
	s := newTestStore(t)

	c := &domain.Component{
		Name:           "My Plugin",
		LocalPath:      "/src/my-plugin",
		VersionTargets: []domain.VersionTarget{{File: "plugin.php"}},
		Modules:        domain.ModuleSettings{"wordpress": {"php": "8.2"}},
	}
	require.NoError(t, Save(s, c))
	assert.Equal(t, "my-plugin", c.ID)

	loaded, err := s.Component("my-plugin")
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestSaveLoadIsByteStable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Project{
		Name:         "Acme Site",
		Domain:       "acme.test",
		ComponentIDs: []string{"b", "a"},
		Modules:      domain.ModuleSettings{"wordpress": {"multisite": true, "workers": 2.0}},
	}))

	path := s.PathFor(domain.EntityProject, "acme-site")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	p, err := s.Project("acme-site")
	require.NoError(t, err)
	require.NoError(t, Save(s, p))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestSaveRejectsIDNameMismatch(t *testing.T) {
	s := newTestStore(t)

	err := Save(s, &domain.Component{ID: "other", Name: "My Plugin"})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ConfigInvalidValue))

	err = Save(s, &domain.Component{Name: "!!!"})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ConfigInvalidValue))
}

func TestSaveServerWithoutName(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, Save(s, &domain.Server{ID: "prod", Host: "example.com", User: "deploy"}))

	err := Save(s, &domain.Server{ID: "Prod Box", Host: "example.com"})
	assert.True(t, apperror.HasCode(err, apperror.ValidationInvalidArgument))
}

func TestSaveRejectsCollisionAcrossTypes(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{Name: "prod"}))

	err := Save(s, &domain.Server{ID: "prod", Host: "example.com"})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ConfigIDCollision))
	appErr := apperror.As(err)
	assert.Equal(t, "server", appErr.Details["entity_type"])
	assert.Equal(t, "component", appErr.Details["existing_type"])
}

func TestLoadNotFoundSuggests(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{Name: "my-plugin"}))
	require.NoError(t, Save(s, &domain.Component{Name: "my-theme"}))

	_, err := s.Component("my-plugn")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ComponentNotFound))
	assert.Equal(t, apperror.ExitNotFound, apperror.As(err).ExitCode())
	assert.Contains(t, apperror.As(err).Details["suggestions"], "my-plugin")
}

func TestLoadInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	path := s.PathFor(domain.EntityServer, "broken")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := s.Server("broken")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ConfigInvalidJSON))
	assert.Equal(t, path, apperror.As(err).Details["path"])
}

func TestListExistsDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Server{ID: "beta", Host: "b.example.com"}))
	require.NoError(t, Save(s, &domain.Server{ID: "alpha", Host: "a.example.com"}))
	require.NoError(t, os.WriteFile(filepath.Join(s.Paths().Servers, "notes.txt"), []byte("x"), 0o644))

	servers, err := s.Servers()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "alpha", servers[0].ID)
	assert.Equal(t, "beta", servers[1].ID)

	assert.True(t, Exists[domain.Server](s, "alpha"))
	assert.False(t, Exists[domain.Server](s, "gamma"))
	assert.False(t, Exists[domain.Server](s, "../alpha"))

	require.NoError(t, Delete[domain.Server](s, "alpha"))
	assert.False(t, Exists[domain.Server](s, "alpha"))

	err = Delete[domain.Server](s, "alpha")
	assert.True(t, apperror.HasCode(err, apperror.ServerNotFound))
}

func TestMerge(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{
		Name:          "api",
		LocalPath:     "/src/api",
		BuildCommand:  "make",
		BuildArtifact: "dist/api.tar.gz",
		Modules: domain.ModuleSettings{
			"node": {"version": "18", "registry": "npm"},
		},
	}))

	out, err := Merge[domain.Component](s, "api",
		[]byte(`{"build_command":null,"remote_path":"/srv/api","modules":{"node":{"version":"20"}}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "api", out.ID)
	assert.Equal(t, []string{"/modules/node/version", "/remote_path"}, out.Set)
	assert.Equal(t, []string{"/build_command"}, out.Removed)
	assert.Equal(t, []string{"build_artifact", "id", "local_path", "name"}, out.Retained)

	c, err := s.Component("api")
	require.NoError(t, err)
	assert.Empty(t, c.BuildCommand)
	assert.Equal(t, "/srv/api", c.RemotePath)
	assert.Equal(t, map[string]any{"version": "20", "registry": "npm"}, c.Modules["node"])
}

func TestMergeReplaceFields(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{
		Name:    "api",
		Modules: domain.ModuleSettings{"node": {"version": "18", "registry": "npm"}},
	}))

	out, err := Merge[domain.Component](s, "api", []byte(`{"modules":{"node":{"version":"20"}}}`), []string{"modules.node"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/modules/node"}, out.Set)

	c, err := s.Component("api")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"version": "20"}, c.Modules["node"])
}

func TestMergeErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{Name: "api"}))

	_, err := Merge[domain.Component](s, "missing", []byte(`{}`), nil)
	assert.True(t, apperror.HasCode(err, apperror.ComponentNotFound))

	_, err = Merge[domain.Component](s, "api", []byte(`[1]`), nil)
	assert.True(t, apperror.HasCode(err, apperror.ValidationInvalidJSON))

	_, err = Merge[domain.Component](s, "api", []byte(`{"name":"Renamed"}`), nil)
	assert.True(t, apperror.HasCode(err, apperror.ConfigInvalidValue))

	_, err = Merge[domain.Component](s, "api", []byte(`{"id":"other","name":"other"}`), nil)
	assert.True(t, apperror.HasCode(err, apperror.ValidationInvalidArgument))
}

func TestProjectsUsingAndFindings(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{Name: "api"}))
	require.NoError(t, Save(s, &domain.Project{Name: "zeta", ComponentIDs: []string{"api"}}))
	require.NoError(t, Save(s, &domain.Project{Name: "alpha", ComponentIDs: []string{"api", "ghost"}, ServerID: "nowhere"}))
	require.NoError(t, Save(s, &domain.Project{Name: "other"}))

	users, err := s.ProjectsUsing("api")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alpha", users[0].ID)
	assert.Equal(t, "zeta", users[1].ID)

	alpha, err := s.Project("alpha")
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Field: "component_ids", ID: "ghost", Problem: "component not found"},
		{Field: "server_id", ID: "nowhere", Problem: "server not found"},
	}, s.Findings(alpha))

	_, err = s.ProjectComponents(alpha)
	assert.True(t, apperror.HasCode(err, apperror.ComponentNotFound))

	p, err := s.ResolveComponentProject("api", "zeta")
	require.NoError(t, err)
	assert.Equal(t, "zeta", p.ID)

	p, err = s.ResolveComponentProject("api", "")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDeleteComponentInUse(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save(s, &domain.Component{Name: "api"}))
	require.NoError(t, Save(s, &domain.Project{Name: "site", ComponentIDs: []string{"api"}}))

	err := s.DeleteComponent("api", false)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ValidationInvalidArgument))
	assert.Equal(t, []string{"site"}, apperror.As(err).Details["tried"])

	require.NoError(t, s.DeleteComponent("api", true))
	assert.False(t, Exists[domain.Component](s, "api"))
}
