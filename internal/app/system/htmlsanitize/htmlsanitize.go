// Package htmlsanitize strips markup from user-supplied free text (listing
// descriptions, chat messages, SOS messages) before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag and returns trimmed text. Entities that the
// policy escaped are decoded again since clients render the value as text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// PlainTextMax is PlainText truncated to at most max runes.
func PlainTextMax(s string, max int) string {
	out := PlainText(s)
	if max <= 0 {
		return out
	}
	r := []rune(out)
	if len(r) > max {
		return strings.TrimSpace(string(r[:max]))
	}
	return out
}
