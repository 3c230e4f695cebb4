package recommend

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minSimilarity is the difflib ratio from which two terms are considered the same ("enginering" ~ "engineering").
const minSimilarity = 0.8

// fullOverlap is how many matching terms earn the full overlap score.
const fullOverlap = 3

// termsMatch compares two terms case-insensitively, on containment or similarity.
func termsMatch(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return similarity(a, b) >= minSimilarity
}

func similarity(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// matching returns the profile terms that match at least one keyword, in terms order.
func matching(terms, keywords []string) []string {
	var matched []string
	seen := make(map[string]struct{})
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		for _, kw := range keywords {
			if termsMatch(t, kw) {
				matched = append(matched, t)
				seen[t] = struct{}{}
				break
			}
		}
	}
	return matched
}

// overlap scores matched terms out of max: each match is worth max/fullOverlap.
func overlap(matched []string, max float64) float64 {
	n := len(matched)
	if n > fullOverlap {
		n = fullOverlap
	}
	return max * float64(n) / fullOverlap
}
