package tokenizer

import (
	"strings"
	"unicode"
)

// ParseQuery splits a free-form query into search terms.
//
// Terms are separated by whitespace, except inside double quotes, where the
// quoted text (quotes stripped) forms a single term. Quotes toggle quoting on
// and off, so a quote that is never closed quotes everything up to the end
// of the query and the remainder becomes one term. A backslash directly
// before a quote produces a literal quote; every other backslash is kept so
// that pattern escapes like `\d` reach the matcher untouched.
//
// The result preserves left-to-right order and duplicates and is never nil.
func ParseQuery(query string) []string {
	terms := make([]string, 0)
	var current strings.Builder
	quoted := false

	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes) && runes[i+1] == '"':
			current.WriteRune('"')
			i++
		case r == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return terms
}
