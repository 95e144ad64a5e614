// Package normalize provides string and metadata normalization helpers used
// when matching device rows against remote records.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Fold returns the canonical matching form of a string: trimmed,
// unicode-normalized, and case-folded. Matching on folded strings lets
// "DUNE" on the device find "Dune" in the remote collection.
func Fold(s string) string {
	return folder.String(norm.NFKC.String(strings.TrimSpace(s)))
}

// languageNames maps ISO 639-1 prefixes to display names. E-readers report
// full BCP 47 tags ("en-US", "es-ES"); only the primary subtag matters here.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ca": "Catalan",
	"eu": "Basque",
	"gl": "Galician",
	"nl": "Dutch",
	"ja": "Japanese",
	"ru": "Russian",
}

// LanguageName converts a device language tag into a display name.
// Unknown or empty tags fall back to English, matching the most common
// sideloaded-EPUB case where the tag is simply missing.
func LanguageName(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "English"
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if name, ok := languageNames[tag]; ok {
		return name
	}
	return "English"
}

// SplitGenres turns raw EPUB subject entries into a clean genre list.
// Some publishers pack every genre into a single comma-separated subject;
// that case is split apart. Commas inside individual genres are replaced
// because downstream multi-select fields treat them as separators.
func SplitGenres(subjects []string) []string {
	var raw []string
	if len(subjects) == 1 && strings.Contains(subjects[0], ",") {
		raw = strings.Split(subjects[0], ",")
	} else {
		raw = subjects
	}

	genres := make([]string, 0, len(raw))
	for _, g := range raw {
		g = strings.TrimSpace(strings.ReplaceAll(g, ",", " "))
		if g == "" {
			continue
		}
		genres = append(genres, g)
	}
	return genres
}
