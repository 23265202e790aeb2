// Package sanitize cleans free text that ends up on a lead record, whether it came
// from an operator, a CSV upload or the voice provider's call summary.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// tagPattern only matches what can open an HTML tag, comment or declaration, so a
// bare comparison such as "< $100 and > $50" is left alone.
var tagPattern = regexp.MustCompile(`<[a-zA-Z/!?][^<>]*>`)

// Text strips markup and control characters. Entities are decoded and the result
// stripped again so encoded tags do not survive.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = html.UnescapeString(out)
	out = tagPattern.ReplaceAllString(out, "")
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(out)
}

func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	return &out
}
