package domain

// CommitCategory classifies a commit by its conventional-commit prefix.
type CommitCategory string

const (
	CategoryBreaking CommitCategory = "breaking"
	CategoryFeature  CommitCategory = "feature"
	CategoryFix      CommitCategory = "fix"
	CategoryDocs     CommitCategory = "docs"
	CategoryChore    CommitCategory = "chore"
	CategoryRefactor CommitCategory = "refactor"
	CategoryOther    CommitCategory = "other"
)

// AllCategories lists categories in reporting order.
var AllCategories = []CommitCategory{
	CategoryBreaking, CategoryFeature, CategoryFix, CategoryRefactor,
	CategoryDocs, CategoryChore, CategoryOther,
}

// Commit is one entry of `git log` since a baseline.
type Commit struct {
	Hash     string         `json:"hash"`
	Subject  string         `json:"subject"`
	Category CommitCategory `json:"category"`
	// Description is the subject with its conventional prefix removed.
	Description string `json:"description"`
}
