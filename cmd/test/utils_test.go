package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFiles(dir, []RepoFile{
		{Path: "a.txt", Content: "a"},
		{Path: "nested/deep/b.txt", Content: "b"},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "nested", "deep", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestInitGitRepo(t *testing.T) {
	dir := t.TempDir()
	repo, err := InitGitRepo(dir, []RepoFile{{Path: "README.md", Content: "# hi\n"}})
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Initial commit", commit.Message)

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	status, err := worktree.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())
}

func TestCommitFilesAndTagHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := InitGitRepo(dir, []RepoFile{{Path: "a.txt", Content: "1"}})
	require.NoError(t, err)

	hash, err := CommitFiles(repo, "feat: second", []RepoFile{{Path: "a.txt", Content: "2"}})
	require.NoError(t, err)
	require.NoError(t, TagHead(repo, "v1.0.0", "Release 1.0.0"))

	ref, err := repo.Tag("v1.0.0")
	require.NoError(t, err)
	tag, err := repo.TagObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, hash, tag.Target)
	assert.Equal(t, plumbing.CommitObject, tag.TargetType)

	_, err = CommitFiles(repo, "chore: empty", nil)
	require.NoError(t, err)

	_, err = git.PlainOpen(dir)
	assert.NoError(t, err)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "a\nb\n", Trim("a   \nb \n"))
}
