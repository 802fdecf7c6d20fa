package scorer

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes and strips combining marks, so "José" and "Jose"
// normalize identically.
var foldDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, strips diacritics and punctuation, and collapses
// whitespace. The result is the canonical form compared by the title and
// artist-name signals.
func Normalize(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	prevSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// StringSimilarity returns a normalized edit-distance ratio in [0,1] between
// the canonical forms of a and b: 1.0 for identical normalized strings,
// decreasing with edit distance.
func StringSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}

// NameSimilarity scores two artist name lists: the maximum pairwise string
// similarity across both sides. Returns 0 when either side is empty.
func NameSimilarity(a, b []string) float64 {
	best := 0.0
	for _, x := range a {
		for _, y := range b {
			if s := StringSimilarity(x, y); s > best {
				best = s
			}
		}
	}
	return best
}
