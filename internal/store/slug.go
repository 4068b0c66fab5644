package store

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 60

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases value, strips accents, and collapses every run of
// other characters into a single dash.
func Slugify(value string) string {
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(stripper, value)
	if err != nil {
		stripped = value
	}
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(stripped), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// NormalizeName is the comparison form used for name uniqueness.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// generateEntityID returns prefix-slug, or prefix-slug-N for the smallest
// N >= 2 not already taken. An empty slug falls back to the prefix.
func generateEntityID(prefix, name string, existing []string) string {
	used := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		used[id] = struct{}{}
	}

	base := Slugify(name)
	if base == "" {
		base = prefix
	}
	candidate := prefix + "-" + base
	if _, taken := used[candidate]; !taken {
		return candidate
	}
	for counter := 2; ; counter++ {
		next := candidate + "-" + strconv.Itoa(counter)
		if _, taken := used[next]; !taken {
			return next
		}
	}
}
