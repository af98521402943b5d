package modules

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/git"
)

// IDFromSource derives a module id from a git URL or directory path:
// the last path element without a .git suffix, slugified.
func IDFromSource(source string) string {
	s := strings.TrimRight(strings.TrimSpace(source), "/")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ".git")
	return domain.Slugify(s)
}

func (r *Registry) targetDir(id string) (string, error) {
	if !slug.IsSlug(id) {
		return "", apperror.InvalidArgument("id", "'"+id+"' is not a valid module id", []string{domain.Slugify(id)})
	}
	dir := filepath.Join(r.dir, id)
	if _, err := os.Lstat(dir); err == nil {
		return "", apperror.InvalidArgument("id", "module '"+id+"' is already installed", nil).
			WithHint("Run 'homeboy module update " + id + "' instead")
	}
	return dir, nil
}

// Install clones a module repository into modules/<id>. The clone is
// removed again when it carries no valid manifest.
func (r *Registry) Install(ctx context.Context, gitURL, id string) (*domain.Manifest, error) {
	if id == "" {
		id = IDFromSource(gitURL)
	}
	dir, err := r.targetDir(id)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, apperror.IO("create", r.dir, err)
	}

	if err := git.Clone(ctx, gitURL, "", dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, apperror.Wrap(apperror.GitCommandFailed, err, "Failed to clone module from "+gitURL).
			WithDetail("url", gitURL)
	}

	m, err := LoadManifest(dir, id)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	r.Reload()
	slog.Info("Module installed", "module_id", id, "git_url", gitURL)
	return m, nil
}

// UpdateResult reports the outcome of a module update.
type UpdateResult struct {
	ID         string `json:"id"`
	Updated    bool   `json:"updated"`
	FromCommit string `json:"from_commit,omitempty"`
	ToCommit   string `json:"to_commit,omitempty"`
}

// Update pulls the module's checkout. Linked modules are managed at their
// source and are refused.
func (r *Registry) Update(ctx context.Context, id string) (*UpdateResult, error) {
	m, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if m.Linked {
		return nil, apperror.InvalidArgument("id", "module '"+id+"' is linked and is updated at its source", nil)
	}
	if !git.IsRepository(m.Path) {
		return nil, apperror.InvalidArgument("id", "module '"+id+"' was not installed from git", nil)
	}

	from, _ := git.HeadCommit(m.Path)
	changed, err := git.Pull(ctx, m.Path)
	if err != nil {
		return nil, apperror.Wrap(apperror.GitCommandFailed, err, "Failed to update module "+id).
			WithDetail("id", id)
	}
	to, _ := git.HeadCommit(m.Path)

	r.Reload()
	return &UpdateResult{ID: id, Updated: changed, FromCommit: from, ToCommit: to}, nil
}

// Link symlinks a local module directory into modules/<id>.
func (r *Registry) Link(source, id string) (*domain.Manifest, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, apperror.IO("resolve", source, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, apperror.InvalidArgument("path", "'"+source+"' is not a directory", nil)
	}
	if err != nil {
		return nil, apperror.IO("stat", abs, err)
	}

	if id == "" {
		id = IDFromSource(path.Base(filepath.ToSlash(abs)))
	}
	dir, err := r.targetDir(id)
	if err != nil {
		return nil, err
	}
	if ManifestPath(abs, id) == "" {
		return nil, apperror.InvalidArgument("path", "'"+source+"' has no "+id+".json manifest", nil)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, apperror.IO("create", r.dir, err)
	}
	if err := os.Symlink(abs, dir); err != nil {
		return nil, apperror.IO("link", dir, err)
	}

	r.Reload()
	m, err := r.Get(id)
	if err != nil {
		_ = os.Remove(dir)
		return nil, err
	}
	return m, nil
}
