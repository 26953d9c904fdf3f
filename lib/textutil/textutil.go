package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName removes every whitespace character from a device name,
// casing and punctuation are left alone. "Pixel 7" and "Pixel7" are the
// same device, "pixel 7" is not.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

// CollapseWhitespace trims s and folds every whitespace run into a single space.
func CollapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Similarity is the Jaro-Winkler similarity of two normalized names, case
// insensitive, in [0, 1].
func Similarity(a, b string) float64 {
	a = strings.ToLower(NormalizeName(a))
	b = strings.ToLower(NormalizeName(b))
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}

// ClosestName returns the candidate most similar to name along with its
// score. ok is false when there are no candidates.
func ClosestName(name string, candidates []string) (closest string, score float64, ok bool) {
	for _, c := range candidates {
		s := Similarity(name, c)
		if !ok || s > score {
			closest, score, ok = c, s, true
		}
	}
	return closest, score, ok
}
