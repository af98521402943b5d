package changelog

import (
	"github.com/homeboy-cli/homeboy/domain"
)

// BreakingPrefix marks entries derived from breaking commits.
const BreakingPrefix = "BREAKING: "

// EntriesFromCommits maps conventional commits to changelog entries in the
// order given. Docs and chore commits are left out.
func EntriesFromCommits(commits []domain.Commit, policy domain.RefactorPolicy) []Entry {
	var out []Entry
	for _, c := range commits {
		text := c.Description
		if text == "" {
			text = c.Subject
		}
		switch c.Category {
		case domain.CategoryFeature:
			out = append(out, Entry{Subsection: Added, Text: text})
		case domain.CategoryFix:
			out = append(out, Entry{Subsection: Fixed, Text: text})
		case domain.CategoryBreaking:
			out = append(out, Entry{Subsection: Changed, Text: BreakingPrefix + text})
		case domain.CategoryRefactor:
			if policy == domain.RefactorAsChanged {
				out = append(out, Entry{Subsection: Changed, Text: text})
			} else {
				out = append(out, Entry{Subsection: Refactored, Text: text})
			}
		case domain.CategoryDocs, domain.CategoryChore:
		default:
			out = append(out, Entry{Subsection: Changed, Text: text})
		}
	}
	return out
}
