package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks: "Café" becomes "Cafe".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases and strips diacritics for keyword comparisons
func Fold(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// CollapseSpaces trims and squeezes runs of whitespace into one space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Unescape replaces placeholder underscores with spaces and collapses
// whitespace: "LUIS_MENA_MATA" becomes "LUIS MENA MATA".
func Unescape(s string) string {
	return CollapseSpaces(strings.ReplaceAll(s, "_", " "))
}
