package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from client-supplied values. The result is HTML-escaped.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// HasMarkup reports whether Sanitize would remove anything from input beyond escaping it.
func HasMarkup(input string) bool {
	return html.UnescapeString(Sanitize(input)) != input
}
