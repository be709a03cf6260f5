// Package similarity implements the exact and fuzzy string matching shared by
// search-result deduplication and concept merging.
package similarity

import (
	"strings"
	"unicode"
)

const (
	// DefaultTitleThreshold is the title similarity at which two search
	// results are considered the same source.
	DefaultTitleThreshold = 0.8
	// DefaultConceptThreshold is the similarity at which two concepts merge.
	DefaultConceptThreshold = 0.75
)

// Normalize lowercases s, turns every run of non letter/digit characters
// into a single space and trims the result.
//
//	Normalize("  Neural-Networks!! ") == "neural networks"
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		space = true
	}
	return b.String()
}

// Ratio returns the normalized Levenshtein similarity of a and b in [0,1].
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// TitleSimilar reports whether two titles are near-duplicates at threshold.
func TitleSimilar(a, b string, threshold float64) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return Ratio(na, nb) >= threshold
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1]
			} else {
				curr[i] = 1 + min(prev[i-1], prev[i], curr[i-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}
