package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// disallowedChars matches everything outside word characters, whitespace and
// the accented Latin letters used in French. The accented set never matches
// after decomposition; it is kept so pre-folded input behaves the same.
var disallowedChars = regexp.MustCompile(`[^\w\sàâäéèêëîïôöùûüç]`)

// NormalizeText folds text into the canonical form used for intent matching
// and provider search: lowercase, diacritics removed, punctuation stripped.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, lowered)
	if err != nil {
		folded = lowered
	}

	return disallowedChars.ReplaceAllString(folded, "")
}
