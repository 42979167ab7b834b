package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 50

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug derives a URL identifier from a title: lowercase, accents
// stripped, non-alphanumeric runs collapsed to hyphens, capped at 50
// characters with no edge hyphens. Deterministic and pure; an empty
// title yields an empty slug and the caller substitutes a
// timestamp-based one.
func Slug(title string) string {
	s := strings.ToLower(title)
	if stripped, _, err := transform.String(accentStripper, s); err == nil {
		s = stripped
	}
	s = nonAlnumPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	return s
}
