// Package shell assembles POSIX shell command strings: quoting, template
// placeholder substitution and permission-fix commands.
package shell

import (
	"regexp"
	"strings"
)

// Quote wraps s in single quotes, escaping embedded single quotes as '\''.
// Strings made only of safe characters are returned unchanged.
func Quote(s string) string {
	if s != "" && safeWord.MatchString(s) {
		return s
	}
	return QuotePath(s)
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// QuotePath always single-quotes p so it survives one round of shell parsing
// byte for byte.
func QuotePath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// QuoteAll quotes each argument and joins them with spaces.
func QuoteAll(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, Quote(a))
	}
	return strings.Join(quoted, " ")
}

// Placeholder names recognized in command templates.
const (
	VarProjectID   = "projectId"
	VarArgs        = "args"
	VarDomain      = "domain"
	VarSitePath    = "sitePath"
	VarCLIPath     = "cliPath"
	VarTable       = "table"
	VarQuery       = "query"
	VarFormat      = "format"
	VarTargetDir   = "targetDir"
	VarArtifact    = "artifact"
	VarScript      = "script"
	VarValue       = "value"
	VarModulePath  = "modulePath"
	VarComponentID = "componentId"
	VarInstallDir  = "installDir"
	VarBasePath    = "basePath"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)

// Vars maps placeholder names to substituted text.
type Vars map[string]string

// Render substitutes {{name}} placeholders. Values are inserted verbatim,
// so callers quote anything that reaches a shell. Unknown placeholders are
// left as they are.
func Render(template string, vars Vars) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Quoted returns a copy of vars with every value passed through QuotePath.
func (v Vars) Quoted() Vars {
	out := make(Vars, len(v))
	for k, val := range v {
		out[k] = QuotePath(val)
	}
	return out
}

// ChmodCommands returns the directory and file permission-fix commands for
// the tree rooted at root, omitting the pass whose mode is empty. Every
// command swallows failures.
func ChmodCommands(root, dirMode, fileMode string) []string {
	q := QuotePath(root)
	var out []string
	if strings.TrimSpace(dirMode) != "" {
		out = append(out, "find "+q+" -type d -exec chmod "+QuotePath(dirMode)+" {} + 2>/dev/null || true")
	}
	if strings.TrimSpace(fileMode) != "" {
		out = append(out, "find "+q+" -type f -exec chmod "+QuotePath(fileMode)+" {} + 2>/dev/null || true")
	}
	return out
}

// InDir prefixes command with a cd into dir.
func InDir(dir, command string) string {
	if dir == "" {
		return command
	}
	return "cd " + QuotePath(dir) + " && " + command
}
