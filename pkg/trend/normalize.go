package trend

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a raw keyword for cross-source comparison:
// lowercase, punctuation and symbols stripped, whitespace collapsed.
// Letters in any script (Hangul included) and digits survive. The function
// is pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(keyword string) string {
	var b strings.Builder
	b.Grow(len(keyword))

	for _, r := range strings.ToLower(keyword) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation, symbols, and control runes are dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
