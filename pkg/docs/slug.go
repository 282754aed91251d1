// Package docs implements doc storage under the managed docs/
// directory: flat markup files identified by a slug derived from the
// title.
package docs

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/centy-io/centy-daemon/pkg/errors"
)

const maxSlugLength = 64

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugRunes   = regexp.MustCompile(`[^a-z0-9]+`)
	diacriticStrip = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify derives a slug from a title: diacritics stripped, lowercased,
// non-alphanumeric runs collapsed to single hyphens.
func Slugify(title string) (string, error) {
	s, _, err := transform.String(diacriticStrip, title)
	if err != nil {
		s = title
	}
	s = strings.ToLower(s)
	s = nonSlugRunes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "", errors.NewValidationError("title", title, "title yields an empty slug")
	}
	return s, nil
}

// ValidateSlug checks a caller-supplied slug.
func ValidateSlug(slug string) error {
	if len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return errors.NewValidationError("slug", slug,
			"must be lowercase alphanumeric with single hyphens")
	}
	return nil
}
