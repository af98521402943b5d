// Package changelog reads and edits Keep-a-Changelog documents: finding the
// pending section, adding entries and finalizing a release.
package changelog

import (
	"regexp"
	"strings"

	"github.com/homeboy-cli/homeboy/domain"
)

// Subsection names in the order they are rendered.
const (
	Added      = "Added"
	Changed    = "Changed"
	Deprecated = "Deprecated"
	Removed    = "Removed"
	Fixed      = "Fixed"
	Security   = "Security"
	Refactored = "Refactored"
)

// Subsections is the rendering order of known subsections.
var Subsections = []string{Added, Changed, Deprecated, Removed, Fixed, Security, Refactored}

var (
	sectionLine      = regexp.MustCompile(`^##\s+(.*?)\s*$`)
	sectionHeader    = regexp.MustCompile(`^\[?([^\]]*?)\]?(?:\s+-\s+(\d{4}-\d{2}-\d{2})\b.*)?$`)
	subsectionHeader = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	bullet           = regexp.MustCompile(`^\s*[-*]\s+(.*?)\s*$`)
	entryLine        = regexp.MustCompile(`^[-*]\s+(.*?)\s*$`)
)

// NormalizeSubsection maps a subsection name to its canonical spelling.
func NormalizeSubsection(name string) (string, bool) {
	for _, s := range Subsections {
		if strings.EqualFold(strings.TrimSpace(name), s) {
			return s, true
		}
	}
	return "", false
}

// Subsection is a ### block inside a release section.
type Subsection struct {
	Name    string   `json:"name"`
	Entries []string `json:"entries"`
}

// Section is a ## block. Start is the header line; End is one past the
// last line that belongs to it.
type Section struct {
	Label       string       `json:"label"`
	Date        string       `json:"date,omitempty"`
	Bracketed   bool         `json:"-"`
	Subsections []Subsection `json:"subsections"`
	// Entries are bullets placed directly under the section header.
	Entries []string `json:"entries,omitempty"`

	Start int `json:"-"`
	End   int `json:"-"`
}

// EntryCount is the number of top-level bullet entries in the section.
// Indented bullets and continuation lines belong to the entry above them.
func (s *Section) EntryCount() int {
	n := len(s.Entries)
	for _, sub := range s.Subsections {
		n += len(sub.Entries)
	}
	return n
}

// Subsection returns the named subsection.
func (s *Section) Subsection(name string) (*Subsection, bool) {
	for i := range s.Subsections {
		if s.Subsections[i].Name == name {
			return &s.Subsections[i], true
		}
	}
	return nil, false
}

// Document is a changelog split into lines with its sections indexed.
type Document struct {
	Lines    []string
	Sections []*Section

	trailingNewline bool
}

// Parse indexes the ## sections of content.
func Parse(content string) *Document {
	doc := &Document{trailingNewline: strings.HasSuffix(content, "\n")}
	if content != "" {
		doc.Lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	}

	var current *Section
	var sub *Subsection
	for i, line := range doc.Lines {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.End = i
			}
			current = &Section{Start: i}
			if h := sectionHeader.FindStringSubmatch(m[1]); h != nil {
				current.Label = strings.TrimSpace(h[1])
				current.Date = h[2]
			} else {
				current.Label = strings.TrimSpace(m[1])
			}
			current.Bracketed = strings.HasPrefix(m[1], "[")
			doc.Sections = append(doc.Sections, current)
			sub = nil
			continue
		}
		if current == nil {
			continue
		}
		if m := subsectionHeader.FindStringSubmatch(line); m != nil {
			name, ok := NormalizeSubsection(m[1])
			if !ok {
				name = m[1]
			}
			if existing, found := current.Subsection(name); found {
				sub = existing
			} else {
				current.Subsections = append(current.Subsections, Subsection{Name: name})
				sub = &current.Subsections[len(current.Subsections)-1]
			}
			continue
		}
		m := entryLine.FindStringSubmatch(line)
		switch {
		case m == nil || m[1] == "":
		case sub != nil:
			sub.Entries = append(sub.Entries, m[1])
		default:
			current.Entries = append(current.Entries, m[1])
		}
	}
	if current != nil {
		current.End = len(doc.Lines)
	}
	return doc
}

// String renders the document back to text.
func (d *Document) String() string {
	if len(d.Lines) == 0 {
		return ""
	}
	out := strings.Join(d.Lines, "\n")
	if d.trailingNewline {
		out += "\n"
	}
	return out
}

// Labels identifies the pending section: its label and accepted aliases.
type Labels struct {
	Label   string
	Aliases []string
}

// LabelsFor merges a component's pending-section label and aliases over
// the app-wide defaults.
func LabelsFor(c *domain.Component, defaults Labels) Labels {
	label := strings.TrimSpace(c.ChangelogNextSectionLabel)
	if label == "" {
		label = strings.TrimSpace(defaults.Label)
	}
	if label == "" {
		label = domain.DefaultChangelogLabel
	}
	out := Labels{Label: label}
	seen := map[string]bool{strings.ToLower(label): true}
	for _, a := range append(append([]string{}, c.ChangelogNextSectionAliases...), defaults.Aliases...) {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.Aliases = append(out.Aliases, strings.TrimSpace(a))
	}
	return out
}

func (l Labels) matches(label string) bool {
	label = strings.TrimSpace(label)
	if strings.EqualFold(label, strings.TrimSpace(l.Label)) {
		return true
	}
	for _, a := range l.Aliases {
		if strings.EqualFold(label, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// Pending returns the topmost undated section whose label matches.
func (d *Document) Pending(labels Labels) (*Section, bool) {
	for _, s := range d.Sections {
		if s.Date == "" && labels.matches(s.Label) {
			return s, true
		}
	}
	return nil, false
}

// Latest returns the topmost dated section.
func (d *Document) Latest() (*Section, bool) {
	for _, s := range d.Sections {
		if s.Date != "" {
			return s, true
		}
	}
	return nil, false
}

func (d *Document) splice(start, end int, lines []string) {
	out := make([]string, 0, len(d.Lines)-(end-start)+len(lines))
	out = append(out, d.Lines[:start]...)
	out = append(out, lines...)
	out = append(out, d.Lines[end:]...)
	d.Lines = out
	d.trailingNewline = true
}
