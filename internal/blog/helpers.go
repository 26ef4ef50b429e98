package blog

import (
	"strings"
	"time"
)

// BlogLink builds the canonical link path for a post slug
func BlogLink(slug string) string {
	return "/blog/" + slug
}

// NormalizeSlug strips leading and trailing slashes; a slug that still
// contains a slash collapses recursively to its last segment.
func NormalizeSlug(slug string) string {
	slug = strings.TrimPrefix(slug, "/")
	slug = strings.TrimSuffix(slug, "/")
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		return NormalizeSlug(slug[i+1:])
	}
	return slug
}

// DateStr formats a post date for display
func DateStr(t time.Time) string {
	return t.Format("January 02, 2006")
}

// ParseDate parses the backend's date property. A zero time is returned for
// anything unparseable.
func ParseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
