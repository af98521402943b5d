package git

import (
	"strings"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/homeboy-cli/homeboy/domain"
)

var categoryByType = map[string]domain.CommitCategory{
	"feat":     domain.CategoryFeature,
	"fix":      domain.CategoryFix,
	"docs":     domain.CategoryDocs,
	"chore":    domain.CategoryChore,
	"refactor": domain.CategoryRefactor,
}

// ParseSubject classifies a commit subject and strips its conventional
// prefix. Unrecognized subjects are Other and keep their full text.
func ParseSubject(subject string) (domain.CommitCategory, string) {
	subject = strings.TrimSpace(subject)
	breakingPhrase := strings.Contains(subject, "BREAKING CHANGE")

	colon := strings.Index(subject, ":")
	if colon <= 0 {
		return otherOrBreaking(breakingPhrase), subject
	}

	// Types are matched case-insensitively; only the prefix is lowered.
	normalized := strings.ToLower(subject[:colon]) + subject[colon:]
	machine := parser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))
	msg, err := machine.Parse([]byte(normalized))
	if err != nil || msg == nil {
		return otherOrBreaking(breakingPhrase), subject
	}
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok {
		return otherOrBreaking(breakingPhrase), subject
	}

	category, known := categoryByType[cc.Type]
	if !known {
		return otherOrBreaking(breakingPhrase), subject
	}
	if cc.Exclamation || breakingPhrase {
		category = domain.CategoryBreaking
	}
	return category, strings.TrimSpace(cc.Description)
}

func otherOrBreaking(breaking bool) domain.CommitCategory {
	if breaking {
		return domain.CategoryBreaking
	}
	return domain.CategoryOther
}

// ParseCommit builds a Commit from a hash and subject line.
func ParseCommit(hash, subject string) domain.Commit {
	category, description := ParseSubject(subject)
	return domain.Commit{
		Hash:        strings.TrimSpace(hash),
		Subject:     subject,
		Category:    category,
		Description: description,
	}
}

// Categorize counts commits per category. Every category is present.
func Categorize(commits []domain.Commit) map[domain.CommitCategory]int {
	counts := make(map[domain.CommitCategory]int, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		counts[cat] = 0
	}
	for _, c := range commits {
		counts[c.Category]++
	}
	return counts
}

// IsDocsOnly reports whether a non-empty set of commits carries no
// feature, fix, breaking or refactor work.
func IsDocsOnly(commits []domain.Commit) bool {
	if len(commits) == 0 {
		return false
	}
	for _, c := range commits {
		switch c.Category {
		case domain.CategoryFeature, domain.CategoryFix, domain.CategoryBreaking, domain.CategoryRefactor:
			return false
		}
	}
	return true
}
