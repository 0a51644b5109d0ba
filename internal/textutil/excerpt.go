package textutil

import (
	"strings"
	"unicode/utf8"
)

// NormalizeWhitespace collapses whitespace runs to single spaces and trims
// the ends. Extracted PDF text is full of layout padding that would bloat
// catalog rows and alert payloads.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns a whitespace-normalized prefix of text at most maxRunes
// long, preferring to cut at a word boundary. Truncated output ends in "...".
func Excerpt(text string, maxRunes int) string {
	normalized := NormalizeWhitespace(text)
	if maxRunes <= 0 || utf8.RuneCountInString(normalized) <= maxRunes {
		return normalized
	}
	clipped := string([]rune(normalized)[:maxRunes])
	if idx := strings.LastIndex(clipped, " "); idx > len(clipped)/2 {
		clipped = clipped[:idx]
	}
	return clipped + "..."
}
