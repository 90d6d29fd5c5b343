// Package enrich holds the matching machinery shared by every enrichment source:
// normalization, query candidates, weighted scoring, best-match selection and
// the per-run lookup cache.
package enrich

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var langPrefixExpr = regexp.MustCompile(`^[a-z]{2}:`)

// Normalize lowercases s, strips diacritics and collapses every run of
// non-alphanumeric characters into a single space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	prevSpace := true
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeCountry normalizes a country name and maps it through the alias
// table so that "Deutschland" and "Germany" compare equal. Catalog values with
// a language tag such as "en:germany" are accepted.
func NormalizeCountry(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = langPrefixExpr.ReplaceAllString(s, "")
	n := Normalize(s)
	if n == "" {
		return ""
	}
	if alias, ok := countryAliases[n]; ok {
		return alias
	}
	return n
}

// IdentityKey is the composite name+brewery+country key used for collision
// detection and discovery de-duplication.
func IdentityKey(name, brewery, country string) string {
	if strings.TrimSpace(brewery) == "" {
		brewery = "-"
	}
	return Normalize(name) + "|" + normalizeBrewery(brewery) + "|" + NormalizeCountry(country)
}

func normalizeBrewery(s string) string {
	if strings.TrimSpace(s) == "-" {
		return "-"
	}
	return Normalize(s)
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
