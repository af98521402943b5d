package git

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/testing/mocks"
)

func TestParseSubject(t *testing.T) {
	tests := []struct {
		subject  string
		category domain.CommitCategory
		desc     string
	}{
		{"feat: add X", domain.CategoryFeature, "add X"},
		{"fix(core): ouch", domain.CategoryFix, "ouch"},
		{"feat!: big", domain.CategoryBreaking, "big"},
		{"docs: tweak", domain.CategoryDocs, "tweak"},
		{"chore: bump", domain.CategoryChore, "bump"},
		{"weird", domain.CategoryOther, "weird"},
		{"refactor(api)!: drop v1", domain.CategoryBreaking, "drop v1"},
		{"Feat: capitalized prefix", domain.CategoryFeature, "capitalized prefix"},
		{"refactor: split module", domain.CategoryRefactor, "split module"},
		{"fix: BREAKING CHANGE in output", domain.CategoryBreaking, "BREAKING CHANGE in output"},
		{"perf: faster", domain.CategoryOther, "perf: faster"},
		{"Merge branch 'main'", domain.CategoryOther, "Merge branch 'main'"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			cat, desc := ParseSubject(tt.subject)
			assert.Equal(t, tt.category, cat)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestCategorizeAndDocsOnly(t *testing.T) {
	commits := ParseLog("a1|feat: add X\nb2|docs: tweak\nc3|docs: more\n")
	require.Len(t, commits, 3)
	assert.Equal(t, "a1", commits[0].Hash)

	counts := Categorize(commits)
	assert.Equal(t, 1, counts[domain.CategoryFeature])
	assert.Equal(t, 2, counts[domain.CategoryDocs])
	assert.Equal(t, 0, counts[domain.CategoryBreaking])
	assert.Len(t, counts, len(domain.AllCategories))

	assert.False(t, IsDocsOnly(commits))
	assert.True(t, IsDocsOnly(commits[1:]))
	assert.True(t, IsDocsOnly(ParseLog("x|chore: deps\ny|weird\n")))
	assert.False(t, IsDocsOnly(nil))
}

func TestParseLogKeepsPipesInSubject(t *testing.T) {
	commits := ParseLog("abc123|fix: handle a|b\n\n")
	require.Len(t, commits, 1)
	assert.Equal(t, "fix: handle a|b", commits[0].Subject)
	assert.Equal(t, "handle a|b", commits[0].Description)
}

func TestParsePorcelain(t *testing.T) {
	out := "M  staged.go\n" +
		" M unstaged.go\n" +
		"MM both.go\n" +
		"?? new.txt\n" +
		"R  old.go -> renamed.go\n" +
		"!! ignored.log\n" +
		"?? \"with space.txt\"\n"

	c := ParsePorcelain(out)
	assert.Equal(t, []string{"staged.go", "both.go", "renamed.go"}, c.Staged)
	assert.Equal(t, []string{"unstaged.go", "both.go"}, c.Unstaged)
	assert.Equal(t, []string{"new.txt", "with space.txt"}, c.Untracked)
	assert.True(t, c.HasChanges)
	assert.Equal(t, []string{"staged.go", "both.go", "renamed.go", "unstaged.go", "new.txt", "with space.txt"}, c.Paths())

	clean := ParsePorcelain("")
	assert.False(t, clean.HasChanges)
	assert.Empty(t, clean.Paths())
}

func TestParseDiffStat(t *testing.T) {
	patch := `diff --git a/main.go b/main.go
index 83db48f..bf269f4 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
-var a = 1
+var a = 2
+var b = 3
 func main() {}
diff --git a/README.md b/README.md
index 1111111..2222222 100644
--- a/README.md
+++ b/README.md
@@ -1 +1 @@
-old
+new
`
	stat, err := ParseDiffStat(patch)
	require.NoError(t, err)
	require.Len(t, stat.Files, 2)
	assert.Equal(t, FileStat{Path: "main.go", Added: 2, Removed: 1}, stat.Files[0])
	assert.Equal(t, FileStat{Path: "README.md", Added: 1, Removed: 1}, stat.Files[1])
	assert.Equal(t, 3, stat.Added)
	assert.Equal(t, 2, stat.Removed)

	empty, err := ParseDiffStat("")
	require.NoError(t, err)
	assert.Empty(t, empty.Files)
}

func TestClientCommandFailure(t *testing.T) {
	r := (&mocks.MockRunner{}).On("git commit", runner.Result{ExitCode: 1, Stderr: "nothing to commit"})
	c := New(r, "/repo")

	err := c.Commit(context.Background(), "Release 1.0.0")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.GitCommandFailed))
	appErr := apperror.As(err)
	assert.Equal(t, "nothing to commit", appErr.Details["stderr"])
	assert.Equal(t, 1, appErr.Details["exit_code"])
	assert.Equal(t, apperror.ExitRemote, appErr.ExitCode())

	require.Len(t, r.Calls, 1)
	assert.Equal(t, "/repo", r.Calls[0].Dir)
	assert.Equal(t, []string{"commit", "-m", "Release 1.0.0"}, r.Calls[0].Args)
}

func TestClientSpawnFailure(t *testing.T) {
	r := (&mocks.MockRunner{}).OnError("git", errors.New("exec: \"git\": executable file not found"))
	_, err := New(r, "/repo").Status(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.GitCommandFailed))
}

func TestLatestTagNone(t *testing.T) {
	r := (&mocks.MockRunner{}).On("describe", runner.Result{ExitCode: 128, Stderr: "fatal: No names found, cannot describe anything."})
	tag, ok, err := New(r, "/repo").LatestTag(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tag)
}

func TestDetectBaselineWithMockRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("version tag", func(t *testing.T) {
		r := (&mocks.MockRunner{}).On("rev-parse --verify --quiet refs/tags/v1.2.3", runner.Result{Stdout: "abc\n"})
		b, err := New(r, "/repo").DetectBaseline(ctx, "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, &Baseline{Reference: "v1.2.3", Kind: BaselineVersionTag}, b)
	})

	t.Run("latest tag", func(t *testing.T) {
		r := (&mocks.MockRunner{}).
			On("rev-parse --verify", runner.Result{ExitCode: 1}).
			On("describe", runner.Result{Stdout: "v1.0.0\n"})
		b, err := New(r, "/repo").DetectBaseline(ctx, "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, &Baseline{Reference: "v1.0.0", Kind: BaselineLatestTag}, b)
	})

	t.Run("root commit", func(t *testing.T) {
		r := (&mocks.MockRunner{}).
			On("describe", runner.Result{ExitCode: 128, Stderr: "fatal: No names found"}).
			On("rev-list", runner.Result{Stdout: "deadbeef\n"})
		b, err := New(r, "/repo").DetectBaseline(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, &Baseline{Reference: "deadbeef", Kind: BaselineRootCommit}, b)
		assert.Equal(t, "first commit deadbeef", b.Describe())
		assert.False(t, r.Called("rev-parse"))
	})
}

func TestVersionTag(t *testing.T) {
	assert.Equal(t, "v1.2.3", VersionTag("1.2.3"))
	assert.Equal(t, "v1.2.3", VersionTag("v1.2.3"))
}

func TestDiffSections(t *testing.T) {
	r := (&mocks.MockRunner{}).
		On("diff --cached", runner.Result{Stdout: "staged-diff\n"}).
		On("git diff", runner.Result{Stdout: "unstaged-diff\n"})

	out, err := New(r, "/repo").Diff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "=== Staged changes ===\nstaged-diff\n=== Unstaged changes ===\nunstaged-diff\n", out)
}
