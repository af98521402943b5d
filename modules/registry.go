// Package modules loads module manifests from the config root and derives
// the settings and environment module commands run with.
package modules

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/validation"
	"github.com/homeboy-cli/homeboy/version"
)

// manifestExtensions are tried in order inside modules/<id>/.
var manifestExtensions = []string{".json", ".yaml", ".yml"}

// Registry is a process-wide read cache of module manifests.
type Registry struct {
	dir string

	once      sync.Once
	loadErr   error
	manifests map[string]*domain.Manifest
}

// NewRegistry creates a registry over the modules directory. Nothing is
// read until the first lookup.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Dir returns the modules directory.
func (r *Registry) Dir() string {
	return r.dir
}

func (r *Registry) ensure() error {
	r.once.Do(func() {
		r.manifests, r.loadErr = loadAll(r.dir)
	})
	return r.loadErr
}

// Reload drops the cache so the next lookup rereads the directory.
func (r *Registry) Reload() {
	r.once = sync.Once{}
	r.manifests = nil
	r.loadErr = nil
}

func loadAll(dir string) (map[string]*domain.Manifest, error) {
	out := map[string]*domain.Manifest{}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, apperror.IO("list", dir, err)
	}

	for _, e := range entries {
		id := e.Name()
		if strings.HasPrefix(id, ".") {
			continue
		}
		path := filepath.Join(dir, id)

		linked := e.Type()&fs.ModeSymlink != 0
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			if linked {
				slog.Warn("Skipping broken module link", "module_id", id, "path", path)
			}
			continue
		}

		m, err := LoadManifest(path, id)
		if err != nil {
			slog.Warn("Skipping invalid module", "module_id", id, "path", path, "error", err)
			continue
		}
		m.Linked = linked
		out[id] = m
	}
	return out, nil
}

// ManifestPath returns the manifest file inside a module directory, or ""
// when there is none.
func ManifestPath(moduleDir, id string) string {
	for _, ext := range manifestExtensions {
		p := filepath.Join(moduleDir, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadManifest reads <moduleDir>/<id>.json (or .yaml/.yml). The id always
// comes from the directory name.
func LoadManifest(moduleDir, id string) (*domain.Manifest, error) {
	path := ManifestPath(moduleDir, id)
	if path == "" {
		return nil, apperror.Newf(apperror.ConfigMissingKey, "Module '%s' has no manifest (%s.json)", id, id).
			WithDetail("path", moduleDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.IO("read", path, err)
	}

	m := &domain.Manifest{}
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, m)
	} else {
		err = yaml.Unmarshal(data, m)
	}
	if err != nil {
		return nil, apperror.InvalidConfigJSON(path, err)
	}

	m.ID = id
	m.Path = moduleDir
	if err := validation.Struct(m); err != nil {
		return nil, err
	}
	for ext, pattern := range m.VersionPatterns {
		if err := version.ValidatePattern(pattern); err != nil {
			return nil, apperror.InvalidValue("version_patterns."+ext, pattern, err.Error())
		}
	}
	return m, nil
}

// All returns every loaded manifest sorted by id.
func (r *Registry) All() ([]*domain.Manifest, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}
	out := make([]*domain.Manifest, 0, len(r.manifests))
	for _, m := range r.manifests {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IDs returns the loaded module ids, sorted.
func (r *Registry) IDs() []string {
	all, _ := r.All()
	ids := make([]string, 0, len(all))
	for _, m := range all {
		ids = append(ids, m.ID)
	}
	return ids
}

// Lookup returns the manifest for id when loaded.
func (r *Registry) Lookup(id string) (*domain.Manifest, bool) {
	if err := r.ensure(); err != nil {
		return nil, false
	}
	m, ok := r.manifests[id]
	return m, ok
}

// Get is Lookup returning module.not_found with suggestions.
func (r *Registry) Get(id string) (*domain.Manifest, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}
	if m, ok := r.manifests[id]; ok {
		return m, nil
	}
	return nil, apperror.NotFound(apperror.ModuleNotFound, "Module", id, r.IDs())
}

// ByCLITool returns the first module, by id, whose cli.tool equals tool.
func (r *Registry) ByCLITool(tool string) (*domain.Manifest, bool) {
	all, err := r.All()
	if err != nil {
		return nil, false
	}
	for _, m := range all {
		if m.CLI != nil && m.CLI.Tool == tool {
			return m, true
		}
	}
	return nil, false
}

// CLITools lists the tools modules expose through `homeboy cli`.
func (r *Registry) CLITools() []string {
	all, _ := r.All()
	tools := []string{}
	for _, m := range all {
		if m.CLI != nil {
			tools = append(tools, m.CLI.Tool)
		}
	}
	return tools
}

// Enabled returns the loaded manifests among ids, keeping the order of ids.
// Ids without a loaded manifest are skipped.
func (r *Registry) Enabled(ids []string) []*domain.Manifest {
	out := []*domain.Manifest{}
	for _, id := range ids {
		if m, ok := r.Lookup(id); ok {
			out = append(out, m)
		}
	}
	return out
}

// ForComponent returns the manifests enabled by the component and then by
// the project, without duplicates.
func (r *Registry) ForComponent(c *domain.Component, p *domain.Project) []*domain.Manifest {
	ids := c.ModuleIDs()
	if p != nil {
		seen := map[string]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range p.Modules.IDs() {
			if !seen[id] {
				ids = append(ids, id)
			}
		}
	}
	return r.Enabled(ids)
}

// MatchBuild finds the first enabled module whose build block claims the
// component's artifact and whose script exists in the component's local
// path. It returns the module and the absolute script path.
func MatchBuild(c *domain.Component, enabled []*domain.Manifest) (*domain.Manifest, string, bool) {
	if c.LocalPath == "" {
		return nil, "", false
	}
	for _, m := range enabled {
		if m.Build == nil || !m.Build.MatchesArtifact(c.BuildArtifact) {
			continue
		}
		for _, name := range m.Build.ScriptNames {
			script := filepath.Join(c.LocalPath, name)
			if info, err := os.Stat(script); err == nil && !info.IsDir() {
				return m, script, true
			}
		}
	}
	return nil, "", false
}

// ProvidesBuild reports whether the component can be built: it has an
// explicit build command or an enabled module matches it.
func (r *Registry) ProvidesBuild(c *domain.Component) bool {
	if strings.TrimSpace(c.BuildCommand) != "" {
		return true
	}
	_, _, ok := MatchBuild(c, r.Enabled(c.ModuleIDs()))
	return ok
}

// VersionPattern returns the pattern an enabled module contributes for
// files with extension ext (".php" or "php").
func VersionPattern(ext string, enabled []*domain.Manifest) (string, bool) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, m := range enabled {
		for k, pattern := range m.VersionPatterns {
			if strings.TrimPrefix(strings.ToLower(k), ".") == ext {
				return pattern, true
			}
		}
	}
	return "", false
}
