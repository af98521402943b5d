// Package test provides fixture helpers for Homeboy tests
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"
)

type RepoFile struct {
	Path    string
	Content string
}

func signature() *object.Signature {
	return &object.Signature{
		Name:  "John Doe",
		Email: "john@doe.org",
		When:  time.Now(),
	}
}

// SkipWithoutGit skips tests that shell out to the git binary.
func SkipWithoutGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// WriteFiles writes files below dir, creating parent directories.
func WriteFiles(dir string, files []RepoFile) error {
	for _, file := range files {
		filePath := filepath.Join(dir, file.Path)
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", file.Path, err)
		}
		if err := os.WriteFile(filePath, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", file.Path, err)
		}
	}
	return nil
}

// InitGitRepo creates a repository at path with files committed as
// "Initial commit".
func InitGitRepo(path string, files []RepoFile) (*git.Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository: %w", err)
	}

	if _, err := CommitFiles(repo, "Initial commit", files); err != nil {
		return nil, err
	}
	return repo, nil
}

// CommitFiles writes and stages files, then commits them with message.
func CommitFiles(repo *git.Repository, message string, files []RepoFile) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := AddRepoFiles(worktree, files); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to add files to git repository: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author:            signature(),
		AllowEmptyCommits: len(files) == 0,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit changes: %w", err)
	}
	return hash, nil
}

func AddRepoFiles(repoWorktree *git.Worktree, files []RepoFile) error {
	repoDir := repoWorktree.Filesystem.Root()

	if err := WriteFiles(repoDir, files); err != nil {
		return err
	}
	for _, file := range files {
		if _, err := repoWorktree.Add(file.Path); err != nil {
			return fmt.Errorf("failed to add file %s to git: %w", file.Path, err)
		}
	}
	return nil
}

// TagHead creates an annotated tag on HEAD.
func TagHead(repo *git.Repository, name, message string) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if _, err := repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  signature(),
		Message: message,
	}); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	return nil
}

// Trim trims trailing spaces left by tablewriter on each line to make the lines length-aligned
func Trim(input string) string {
	lines := strings.Split(input, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \n")
	}

	return strings.Join(lines, "\n")
}

// Envelope is a decoded command output document.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   map[string]any `json:"error"`
}

// Object returns the data as a JSON object.
func (e *Envelope) Object() map[string]any {
	m, _ := e.Data.(map[string]any)
	return m
}

// List returns the data as a JSON array.
func (e *Envelope) List() []any {
	l, _ := e.Data.([]any)
	return l
}

// RunCommand executes cmd with args and decodes what it printed. On a
// command error the envelope is nil.
func RunCommand(cmd *cobra.Command, args ...string) (*Envelope, error) {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	env := &Envelope{}
	if err := json.Unmarshal(stdout.Bytes(), env); err != nil {
		return nil, fmt.Errorf("decoding output %q: %w", stdout.String(), err)
	}
	return env, nil
}
