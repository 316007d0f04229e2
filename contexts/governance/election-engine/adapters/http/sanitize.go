package httpadapter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.StrictPolicy()

// plainText strips every tag from a display name. The policy escapes what it
// keeps, so entities are decoded back before storage.
func plainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(value)))
}
