// Package htmlsanitize strips markup from user-supplied free-text fields
// (descriptions, locations) before they are stored. The SPA renders these
// fields as text; anything that looks like HTML in them is either a paste
// accident or an injection attempt, so everything is removed rather than
// allow-listed.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean returns s with all HTML tags removed and entities decoded, trimmed
// of surrounding whitespace.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
