package namespace

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Score rates how well candidate matches query on a 0-100 scale. It is the
// best of the whole-string ratio, the best window of the longer string
// (weighted 0.9) and the best single dotted component (weighted 0.95).
// Matching is case-insensitive and the result is rounded to two decimals.
func Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(candidate)

	best := ratio(q, c)
	best = math.Max(best, 0.9*partialRatio(q, c))
	for _, part := range strings.Split(c, ".") {
		best = math.Max(best, 0.95*ratio(q, part))
	}
	return math.Round(best*100) / 100
}

// ratio is 100 * (1 - levenshtein / longer length)
func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// partialRatio aligns the shorter string against every window of the longer
// one and keeps the best ratio
func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		best = math.Max(best, ratio(s, string(long[i:i+len(short)])))
		if best == 100 {
			break
		}
	}
	return best
}
