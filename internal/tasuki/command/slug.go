package command

import (
	"regexp"
	"strings"
)

var (
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugDisallow = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify derives a URL-safe identifier from a human-readable name:
// lowercase, whitespace runs become single hyphens, and everything outside
// [a-z0-9-] is dropped. An empty or symbol-only name yields "".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugDisallow.ReplaceAllString(s, "")
}
