// Package slug derives URL-safe identifiers from article titles.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength bounds the base slug; suffixes are appended on top of it.
	MaxLength = 50
	// Fallback is used when a title has no usable characters.
	Fallback = "article"
)

// Make lower-cases title, strips diacritics and joins the remaining
// alphanumeric runs with single hyphens.
func Make(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	s := b.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}

// WithSuffix returns base-n, used to disambiguate colliding slugs.
func WithSuffix(base string, n int) string {
	return base + "-" + strconv.Itoa(n)
}
