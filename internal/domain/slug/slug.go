// Package slug derives URL-safe store identifiers and resolves collisions
// between them.
package slug

import (
	"regexp"
	"strconv"
	"strings"

	gosimple "github.com/gosimple/slug"

	"github.com/kailas-cloud/venuedex/internal/domain"
)

// Apostrophes vanish instead of splitting words and ampersands act as plain
// separators, so the slugifier never spells them out.
var punctuation = strings.NewReplacer("'", "", "’", "", "`", "", "&", " ")

// Make returns the lowercase, hyphenated base slug for name:
// "Joe's" becomes "joes", "Cafe & Bar" becomes "cafe-bar".
func Make(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Validationf("name is required")
	}
	s := gosimple.MakeLang(punctuation.Replace(name), "en")
	if s == "" {
		return "", domain.Validationf("name %q produces an empty slug", name)
	}
	return s, nil
}

// Matches reports whether candidate is base, optionally followed by "-<digits>".
func Matches(base, candidate string) bool {
	return pattern(base).MatchString(candidate)
}

// CountCollisions counts the existing slugs that collide with base.
func CountCollisions(base string, existing []string) int {
	re := pattern(base)
	n := 0
	for _, s := range existing {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}

// Disambiguate returns base for k == 0, otherwise "base-(k+1)".
func Disambiguate(base string, k int) string {
	if k <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(k+1)
}

// IsValid reports whether s already has slug form.
func IsValid(s string) bool {
	return s != "" && gosimple.IsSlug(s)
}

func pattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(base) + `(-[0-9]*)?$`)
}
