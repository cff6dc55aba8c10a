// Package similarity implements the fuzzy and substring string
// equivalence judgments used by the record comparator.
//
// Two independent metrics are combined: a token-set overlap ratio,
// which tolerates reordered and subset name components, and a
// character-level longest-matching-blocks ratio, which catches minor
// typos and extraction artifacts. Either one clearing the threshold
// counts as a match.
package similarity

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity bar used unless a call site
// overrides it.
const DefaultThreshold = 0.9

// FuzzyEqual reports whether a and b are equivalent under either the
// token-set ratio or the character-sequence ratio at the given
// threshold. A nil on either side never matches.
func FuzzyEqual(a, b *string, threshold float64) bool {
	if a == nil || b == nil {
		return false
	}
	tokenRatio := float64(fuzzy.TokenSetRatio(*a, *b)) / 100.0
	if tokenRatio >= threshold {
		return true
	}
	return sequenceRatio(*a, *b) >= threshold
}

// ContainsEqual reports whether one string contains the other,
// case-folded. A nil on either side never matches.
func ContainsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	la := strings.ToLower(*a)
	lb := strings.ToLower(*b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// sequenceRatio computes the difflib matching-blocks ratio over the
// runes of a and b, normalized to [0,1].
func sequenceRatio(a, b string) float64 {
	m := difflib.NewMatcher(explode(a), explode(b))
	return m.Ratio()
}

// explode splits s into single-rune strings so the line-oriented
// matcher compares characters.
func explode(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
