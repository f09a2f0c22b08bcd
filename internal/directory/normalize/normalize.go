// Package normalize canonicalizes free-text company and profile names into
// the keys used for matching and uniqueness.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name returns the canonical matching form of text: decomposed, stripped of
// combining marks, lowercased, with punctuation and symbols folded into
// single spaces. Name is idempotent.
func Name(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// The chain carries per-call state, so it is built on every call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	var b strings.Builder
	b.Grow(len(stripped))
	prevSpace := true
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Key returns the lowercased, trimmed form used for case-insensitive
// substring search. Diacritics are kept.
func Key(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
