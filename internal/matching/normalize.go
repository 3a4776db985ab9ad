// Package matching holds the name normalization used to look players and
// teams up by loosely typed names ("luka doncic" finds "Luka Dončić").
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, strips accents and collapses whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)

	// NFD splits "č" into "c" + combining caron; dropping Mn keeps the base letter
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err == nil {
		text = stripped
	}

	return strings.Join(strings.Fields(text), " ")
}

// Contains reports whether needle appears anywhere in haystack once both
// are normalized. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// ContainsNormalized is Contains for inputs that are already normalized.
func ContainsNormalized(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}
