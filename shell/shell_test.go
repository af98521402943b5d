package shell

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotePath(t *testing.T) {
	assert.Equal(t, `'/srv/my site'`, QuotePath("/srv/my site"))
	assert.Equal(t, `'it'\''s'`, QuotePath("it's"))
	assert.Equal(t, `''`, QuotePath(""))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "plugin", Quote("plugin"))
	assert.Equal(t, "--format=json", Quote("--format=json"))
	assert.Equal(t, `'a b'`, Quote("a b"))
	assert.Equal(t, `''`, Quote(""))
	assert.Equal(t, `'$HOME'`, Quote("$HOME"))
}

func TestQuotePathRoundTripsThroughShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	inputs := []string{
		"simple",
		"with space",
		"it's",
		`double "quotes"`,
		"$HOME and `backticks`",
		"semi; rm -rf /",
		"new\nline",
		"'''",
		"back\\slash",
		"*glob?[x]",
		"",
	}
	for _, in := range inputs {
		out, err := exec.Command("sh", "-c", "printf '%s' "+QuotePath(in)).Output()
		require.NoError(t, err, in)
		assert.Equal(t, in, string(out))
	}
}

func TestRender(t *testing.T) {
	tpl := "cd {{sitePath}} && wp {{ args }} --url={{domain}} {{unknown}}"
	got := Render(tpl, Vars{
		VarSitePath: "/var/www",
		VarArgs:     "plugin list",
		VarDomain:   "example.com",
	})
	assert.Equal(t, "cd /var/www && wp plugin list --url=example.com {{unknown}}", got)
}

func TestVarsQuoted(t *testing.T) {
	v := Vars{VarArtifact: "my file.zip"}.Quoted()
	assert.Equal(t, "tar -xzf 'my file.zip'", Render("tar -xzf {{artifact}}", v))
}

func TestChmodCommands(t *testing.T) {
	dirs := "find '/srv/app' -type d -exec chmod 'g+rwx' {} + 2>/dev/null || true"
	files := "find '/srv/app' -type f -exec chmod 'g+rw' {} + 2>/dev/null || true"

	tests := []struct {
		name     string
		dirMode  string
		fileMode string
		want     []string
	}{
		{"both", "g+rwx", "g+rw", []string{dirs, files}},
		{"dirs only", "g+rwx", "", []string{dirs}},
		{"files only", "", "g+rw", []string{files}},
		{"none", "", " ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChmodCommands("/srv/app", tt.dirMode, tt.fileMode))
		})
	}
}

func TestInDir(t *testing.T) {
	assert.Equal(t, "ls", InDir("", "ls"))
	assert.Equal(t, "cd '/a b' && ls", InDir("/a b", "ls"))
}
