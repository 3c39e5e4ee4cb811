package croprec

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeText performs Unicode normalization and trims whitespace.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	// Drop control characters except tabs and newlines.
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return normed
}

// NormalizeNumber folds full-width digits, signs and points typed through an
// IME to ASCII and trims surrounding whitespace. Nothing else is rewritten, so
// text that is not a plain number stays unparseable.
func NormalizeNumber(text string) string {
	return strings.TrimSpace(width.Narrow.String(text))
}

// normalizeKey folds a header or crop label for case-insensitive matching.
func normalizeKey(s string) string {
	normed := NormalizeText(s)
	if normed == "" {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(normed), " "))
}
