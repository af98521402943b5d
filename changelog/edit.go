package changelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

// DateFormat is the date written into finalized section headers.
const DateFormat = "2006-01-02"

// FinalizeResult describes what Finalize did.
type FinalizeResult struct {
	Content   string `json:"-"`
	Finalized bool   `json:"finalized"`
	Version   string `json:"version,omitempty"`
	Date      string `json:"date,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Entries   int    `json:"entries"`
}

// Finalize turns the pending section into "## [version] - date" and opens
// a fresh, empty pending section above it. The body of the section is
// kept line for line; only the as_changed policy moves Refactored entries.
// A missing or empty pending section leaves the document unchanged.
func Finalize(content string, labels Labels, version string, date time.Time, policy domain.RefactorPolicy) *FinalizeResult {
	doc := Parse(content)
	pending, ok := doc.Pending(labels)
	if !ok || !hasContent(doc.body(pending)) {
		return &FinalizeResult{Content: content}
	}

	body := doc.body(pending)
	if policy == domain.RefactorAsChanged {
		body = foldRefactored(body)
	}
	day := date.UTC().Format(DateFormat)

	lines := []string{doc.Lines[pending.Start], ""}
	lines = append(lines, fmt.Sprintf("## [%s] - %s", version, day), "")
	lines = append(lines, body...)
	doc.replace(pending, lines)

	return &FinalizeResult{
		Content:   doc.String(),
		Finalized: true,
		Version:   version,
		Date:      day,
		Notes:     strings.Join(body, "\n"),
		Entries:   pending.EntryCount(),
	}
}

// body returns the lines of s below its header without surrounding blanks.
func (d *Document) body(s *Section) []string {
	return trimBlank(append([]string(nil), d.Lines[s.Start+1:s.End]...))
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// hasContent reports whether lines hold anything besides ### headers.
func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" && !subsectionHeader.MatchString(l) {
			return true
		}
	}
	return false
}

// block is a ### subsection within a slice of lines: the header index and
// one past its last line.
type block struct {
	name       string
	start, end int
}

func blocks(lines []string, from, to int) []block {
	var out []block
	for i := from; i < to; i++ {
		m := subsectionHeader.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].end = i
		}
		name, ok := NormalizeSubsection(m[1])
		if !ok {
			name = m[1]
		}
		out = append(out, block{name: name, start: i, end: to})
	}
	return out
}

// lastContent is the index of the last non-blank line of b, or its header.
func (b block) lastContent(lines []string) int {
	for i := b.end - 1; i > b.start; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return b.start
}

func spliceLines(lines []string, start, end int, insert []string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(insert))
	out = append(out, lines[:start]...)
	out = append(out, insert...)
	return append(out, lines[end:]...)
}

// foldRefactored moves the lines of every Refactored subsection to the end
// of Changed, creating Changed when the section has none.
func foldRefactored(body []string) []string {
	var moved []string
	found := false
	bs := blocks(body, 0, len(body))
	for i := len(bs) - 1; i >= 0; i-- {
		if bs[i].name != Refactored {
			continue
		}
		found = true
		moved = append(trimBlank(append([]string(nil), body[bs[i].start+1:bs[i].end]...)), moved...)
		body = spliceLines(body, bs[i].start, bs[i].end, nil)
	}
	body = trimBlank(body)
	if !found || len(moved) == 0 {
		return body
	}

	for _, b := range blocks(body, 0, len(body)) {
		if b.name != Changed {
			continue
		}
		at := b.lastContent(body)
		insert := moved
		if at == b.start {
			insert = append([]string{""}, moved...)
		}
		return spliceLines(body, at+1, at+1, insert)
	}
	return append(append(body, "", "### "+Changed, ""), moved...)
}

// replace swaps the lines of section s. A blank separator is kept before
// a following section and trailing blanks are dropped at the end.
func (d *Document) replace(s *Section, lines []string) {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if s.End < len(d.Lines) {
		lines = append(lines, "")
	}
	d.splice(s.Start, s.End, lines)
}

// pendingHeader renders a header for a new pending section.
func pendingHeader(label string) string {
	return "## [" + label + "]"
}

// ensurePending returns the pending section, inserting an empty one above
// the first section when there is none.
func (d *Document) ensurePending(labels Labels) *Section {
	if s, ok := d.Pending(labels); ok {
		return s
	}
	label := labels.Label
	if strings.TrimSpace(label) == "" {
		label = domain.DefaultChangelogLabel
	}

	at := len(d.Lines)
	if len(d.Sections) > 0 {
		at = d.Sections[0].Start
	}
	insert := []string{pendingHeader(label), ""}
	if at == len(d.Lines) && at > 0 && d.Lines[at-1] != "" {
		insert = append([]string{""}, insert...)
	}
	if at == len(d.Lines) {
		insert = insert[:len(insert)-1]
	}
	d.splice(at, at, insert)

	reparsed := Parse(d.String())
	*d = *reparsed
	s, _ := d.Pending(labels)
	return s
}

// Entry is one bullet to add to a subsection.
type Entry struct {
	Subsection string `json:"subsection"`
	Text       string `json:"text"`
}

func normalizeEntry(e Entry) (Entry, error) {
	name, ok := NormalizeSubsection(e.Subsection)
	if !ok {
		return e, apperror.InvalidArgument("subsection",
			fmt.Sprintf("'%s' is not one of %s", e.Subsection, strings.Join(Subsections, ", ")),
			apperror.Suggest(e.Subsection, Subsections, 3))
	}
	text := strings.TrimSpace(e.Text)
	if m := bullet.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return e, apperror.MissingArgument("entry")
	}
	return Entry{Subsection: name, Text: text}, nil
}

// AddEntry appends one entry to the pending section, creating the section
// or subsection as needed. An entry equal to an existing one in the same
// subsection is rejected as a duplicate.
func AddEntry(content string, labels Labels, e Entry) (string, error) {
	out, added, err := addEntries(content, labels, []Entry{e}, true)
	if err != nil {
		return "", err
	}
	if added == 0 {
		return content, nil
	}
	return out, nil
}

// AddEntries appends entries, silently skipping duplicates. It returns the
// new content and how many entries were added.
func AddEntries(content string, labels Labels, entries []Entry) (string, int, error) {
	return addEntries(content, labels, entries, false)
}

func addEntries(content string, labels Labels, entries []Entry, strict bool) (string, int, error) {
	normalized := make([]Entry, 0, len(entries))
	for _, e := range entries {
		n, err := normalizeEntry(e)
		if err != nil {
			return "", 0, err
		}
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return content, 0, nil
	}

	doc := Parse(content)
	added := 0
	for _, e := range normalized {
		pending := doc.ensurePending(labels)
		if sub, ok := pending.Subsection(e.Subsection); ok && contains(sub.Entries, e.Text) {
			if strict {
				return "", 0, apperror.InvalidArgument("entry", "duplicate", []string{e.Text}).
					WithDetail("subsection", e.Subsection)
			}
			continue
		}
		doc.insertEntry(pending, e)
		*doc = *Parse(doc.String())
		added++
	}
	if added == 0 {
		return content, 0, nil
	}
	return doc.String(), added, nil
}

// insertEntry adds a bullet after the last line of its subsection. A new
// subsection goes before the first one that follows it in rendering order,
// else after the last line of the section.
func (d *Document) insertEntry(s *Section, e Entry) {
	item := "- " + e.Text
	bs := blocks(d.Lines, s.Start+1, s.End)
	for _, b := range bs {
		if b.name == e.Subsection {
			at := b.lastContent(d.Lines)
			insert := []string{item}
			if at == b.start {
				insert = []string{"", item}
			}
			d.insertAt(at+1, insert)
			return
		}
	}

	rank := subsectionRank(e.Subsection)
	for _, b := range bs {
		if r := subsectionRank(b.name); r >= 0 && r > rank {
			d.insertAt(b.start, []string{"### " + e.Subsection, "", item, ""})
			return
		}
	}

	at := s.Start
	for i := s.End - 1; i > s.Start; i-- {
		if strings.TrimSpace(d.Lines[i]) != "" {
			at = i
			break
		}
	}
	d.insertAt(at+1, []string{"", "### " + e.Subsection, "", item})
}

// insertAt splices lines in at index i, keeping a blank line before any
// non-blank line that follows.
func (d *Document) insertAt(i int, lines []string) {
	if i < len(d.Lines) && strings.TrimSpace(d.Lines[i]) != "" && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	d.splice(i, i, lines)
}

func subsectionRank(name string) int {
	for i, s := range Subsections {
		if s == name {
			return i
		}
	}
	return -1
}

func contains(entries []string, text string) bool {
	for _, e := range entries {
		if e == text {
			return true
		}
	}
	return false
}
