package capability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/domain"
)

func publishModule(id string) *domain.Manifest {
	return &domain.Manifest{ID: id, Actions: []domain.Action{
		{ID: domain.ActionReleasePublish, Command: "publish"},
	}}
}

func TestStepTypes(t *testing.T) {
	target, ok := PublishStep("gh").PublishTarget()
	require.True(t, ok)
	assert.Equal(t, "gh", target)

	_, ok = StepBuild.PublishTarget()
	assert.False(t, ok)
	_, ok = StepType("publish.").PublishTarget()
	assert.False(t, ok)

	assert.True(t, StepGitPush.IsGit())
	assert.False(t, StepVersion.IsGit())

	st, err := ParseStepType("publish.npm")
	require.NoError(t, err)
	assert.Equal(t, PublishStep("npm"), st)
	_, err = ParseStepType("deploy")
	assert.Error(t, err)
}

func TestMissingPublish(t *testing.T) {
	loaded := map[string]*domain.Manifest{
		"gh":   publishModule("gh"),
		"wp":   {ID: "wp"},
		"npm":  publishModule("npm"),
		"note": {ID: "note", Actions: []domain.Action{{ID: "release.notify", Command: "x"}}},
	}
	r := &Resolver{
		Component: &domain.Component{ID: "c"},
		Lookup: func(id string) (*domain.Manifest, bool) {
			m, ok := loaded[id]
			return m, ok
		},
	}

	assert.True(t, r.IsSupported(PublishStep("gh")))
	assert.Equal(t, []string{"Missing module 'wp' with action 'release.publish'"}, r.Missing(PublishStep("wp")))
	assert.Equal(t, []string{"Missing module 'pypi' with action 'release.publish'"}, r.Missing(PublishStep("pypi")))
}

func TestMissingWithoutLookupUsesEnabled(t *testing.T) {
	r := &Resolver{Component: &domain.Component{ID: "c"}, Enabled: []*domain.Manifest{publishModule("gh")}}
	assert.True(t, r.IsSupported(PublishStep("gh")))
	assert.False(t, r.IsSupported(PublishStep("npm")))
}

func TestBuiltinStepsSupported(t *testing.T) {
	r := &Resolver{Component: &domain.Component{ID: "c"}, WorkTree: true}
	for _, st := range []StepType{StepVersion, StepGitCommit, StepGitTag, StepGitPush, StepPackage, StepCleanup, StepPostRelease} {
		assert.True(t, r.IsSupported(st), st)
	}
}

func TestGitStepsNeedWorkTree(t *testing.T) {
	r := &Resolver{Component: &domain.Component{ID: "c", LocalPath: "/src/c"}}
	assert.Equal(t, []string{"Component local_path '/src/c' is not a git work tree"}, r.Missing(StepGitTag))
	assert.True(t, r.IsSupported(StepVersion))
}

func TestBuildSupport(t *testing.T) {
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "build.sh"), []byte("echo\n"), 0o755))
	zip := &domain.Manifest{ID: "wp", Build: &domain.BuildConfig{
		ArtifactExtensions: []string{".zip"},
		ScriptNames:        []string{"build.sh"},
	}}

	tests := []struct {
		name      string
		component domain.Component
		enabled   []*domain.Manifest
		supported bool
	}{
		{"explicit command", domain.Component{BuildCommand: "make"}, nil, true},
		{"module script", domain.Component{LocalPath: local, BuildArtifact: "dist/p.zip"}, []*domain.Manifest{zip}, true},
		{"module without matching extension", domain.Component{LocalPath: local, BuildArtifact: "dist/p.tgz"}, []*domain.Manifest{zip}, false},
		{"nothing", domain.Component{LocalPath: local, BuildArtifact: "dist/p.zip"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.component
			r := &Resolver{Component: &c, Enabled: tt.enabled}
			assert.Equal(t, tt.supported, r.IsSupported(StepBuild))
			if !tt.supported {
				assert.Len(t, r.Missing(StepBuild), 1)
			}
		})
	}
}

func TestPublishTargets(t *testing.T) {
	c := &domain.Component{ID: "c", Release: &domain.ReleaseConfig{Publish: []string{"gh", " ", "gh", "pypi"}}}
	r := &Resolver{Component: c, Enabled: []*domain.Manifest{
		publishModule("npm"), {ID: "wp"}, publishModule("gh"), publishModule("crates"),
	}}
	assert.Equal(t, []string{"gh", "pypi", "crates", "npm"}, r.PublishTargets())
}

func TestActions(t *testing.T) {
	a := &domain.Manifest{ID: "a", Actions: []domain.Action{{ID: domain.ActionReleaseCleanup, Command: "rm -rf dist"}}}
	b := &domain.Manifest{ID: "b"}
	r := &Resolver{Component: &domain.Component{ID: "c"}, Enabled: []*domain.Manifest{a, b}}

	got := r.Actions(domain.ActionReleaseCleanup)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Module.ID)
	assert.Equal(t, "rm -rf dist", got[0].Action.Command)
	assert.Empty(t, r.Actions(domain.ActionReleasePackage))
}
