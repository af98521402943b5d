package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// IsRepository reports whether path is inside a git work tree.
func IsRepository(path string) bool {
	if path == "" {
		return false
	}
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// Clone clones gitURL into dir, optionally at branch.
func Clone(ctx context.Context, gitURL, branch, dir string) error {
	slog.Info("Cloning repository", "git_url", gitURL, "git_branch", branch, "working_dir", dir)

	cloneOptions := &git.CloneOptions{
		URL:          gitURL,
		SingleBranch: true,
	}
	if branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, cloneOptions); err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_clone",
			"git_url", gitURL,
			"git_branch", branch,
			"working_dir", dir,
			"error", err)
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	slog.Info("Repository cloned successfully", "git_url", gitURL, "working_dir", dir)
	return nil
}

// Pull fetches origin and moves the checked-out branch to the remote head.
// Tracked files are reset; untracked files are kept. It reports whether
// anything changed.
func Pull(ctx context.Context, dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_pull",
			"working_dir", dir,
			"error", err)
		return false, err
	}

	head, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return false, errors.New("HEAD is detached; check out a branch before updating")
	}
	branch := head.Name().Short()

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch)),
		},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_fetch",
			"git_branch", branch,
			"working_dir", dir,
			"error", err)
		return false, fmt.Errorf("failed to fetch changes: %w", err)
	}

	remoteRef := plumbing.NewRemoteReferenceName("origin", branch)
	ref, err := repo.Reference(remoteRef, true)
	if err != nil {
		return false, fmt.Errorf("failed to get remote reference %s: %w", remoteRef, err)
	}
	if head.Hash() == ref.Hash() {
		slog.Debug("Repository already up to date", "git_branch", branch, "working_dir", dir)
		return false, nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	if err := worktree.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_pull_reset",
			"git_branch", branch,
			"working_dir", dir,
			"target_commit", ref.Hash().String(),
			"error", err)
		return false, fmt.Errorf("failed to reset to %s: %w", ref.Hash().String(), err)
	}

	slog.Info("Repository updated successfully",
		"git_branch", branch,
		"working_dir", dir,
		"from_commit", head.Hash().String(),
		"to_commit", ref.Hash().String())
	return true, nil
}

// HeadCommit returns the hash HEAD points to.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
