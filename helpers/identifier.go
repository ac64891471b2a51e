package helpers

import (
	"regexp"
	"strings"
	"unicode"
)

var doiRegex = regexp.MustCompile(`^10\.\d{4,}/[^\s]+$`)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver and scheme prefixes and lowercases the DOI.
// DOIs are case-insensitive, so "10.1000/ABC" and "doi:10.1000/abc" compare equal.
// The empty string is returned when value is not a DOI.
func NormalizeDOI(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(value, prefix) {
			value = strings.TrimSpace(strings.TrimPrefix(value, prefix))
			break
		}
	}
	if !doiRegex.MatchString(value) {
		return ""
	}
	return value
}

// NormalizeTitle folds a title into a comparison key: markup is removed,
// case is folded, punctuation is dropped and whitespace is collapsed.
func NormalizeTitle(title string) string {
	title = strings.ToLower(StripHTML(title))

	var sb strings.Builder
	sb.Grow(len(title))
	for _, r := range title {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return NormalizeWhitespace(sb.String())
}
