package apperror

import (
	"sort"
	"strings"
)

// Suggest returns up to limit entries of known closest to input by edit
// distance. Candidates further than max(2, len(input)/2) edits are dropped.
func Suggest(input string, known []string, limit int) []string {
	type candidate struct {
		value string
		dist  int
	}

	threshold := max(2, len(input)/2)
	lowered := strings.ToLower(input)

	var candidates []candidate
	for _, k := range known {
		if k == input {
			continue
		}
		d := levenshtein(lowered, strings.ToLower(k))
		if strings.HasPrefix(strings.ToLower(k), lowered) && lowered != "" {
			d = min(d, 1)
		}
		if d <= threshold {
			candidates = append(candidates, candidate{value: k, dist: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].value < candidates[j].value
	})

	out := []string{}
	for i := 0; i < len(candidates) && i < limit; i++ {
		out = append(out, candidates[i].value)
	}
	return out
}

// levenshtein computes the edit distance between a and b using two rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
