package dedup

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// descriptionSimilarity scores two descriptions in [0,1]. Word-set overlap
// when both sides have at least one word longer than two characters, so
// "coffee shop" fully matches "coffee shop inc"; normalized Levenshtein
// otherwise, where word sets carry no signal.
func descriptionSimilarity(a, b string) float64 {
	na, nb := normalizeDescription(a), normalizeDescription(b)
	if na == "" || nb == "" {
		if na == nb {
			return 1.0
		}
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	wordsA := significantWords(na)
	wordsB := significantWords(nb)
	if len(wordsA) > 0 && len(wordsB) > 0 {
		return wordOverlap(wordsA, wordsB)
	}

	dist := fuzzy.LevenshteinDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// normalizeDescription lower-cases, strips non-alphanumerics and collapses
// whitespace.
func normalizeDescription(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// significantWords returns the words longer than two characters, as a set.
func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}

// wordOverlap is the overlap coefficient: shared words over the smaller
// word set. A description fully contained in the other scores 1.0, which
// is the behavior merchant-name suffixes ("ltd", "inc") need.
func wordOverlap(a, b map[string]bool) float64 {
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	if smaller == 0 {
		return 0
	}
	return float64(inter) / float64(smaller)
}
