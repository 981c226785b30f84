// Package normalize strips markup noise from field text before matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Func turns raw field text into the text a search rule matches against.
// Implementations must be pure and total.
type Func func(text string) string

// Identity returns the text unchanged.
func Identity(text string) string {
	return text
}

// accentMarks maps single-symbol accent macros (\"o, \'e, ...) to the
// combining mark they put on the following letter.
var accentMarks = map[rune]rune{
	'"':  '\u0308',
	'\'': '\u0301',
	'`':  '\u0300',
	'^':  '\u0302',
	'~':  '\u0303',
	'=':  '\u0304',
	'.':  '\u0307',
}

// letterAccents maps single-letter accent macros (\c{c}, \v{s}, ...) to their
// combining mark.
var letterAccents = map[string]rune{
	"c": '\u0327',
	"v": '\u030c',
	"u": '\u0306',
	"H": '\u030b',
	"k": '\u0328',
	"r": '\u030a',
}

// symbols maps control words that stand for a letter on their own.
var symbols = map[string]string{
	"ss": "ß",
	"o":  "ø",
	"O":  "Ø",
	"ae": "æ",
	"AE": "Æ",
	"oe": "œ",
	"OE": "Œ",
	"aa": "å",
	"AA": "Å",
	"l":  "ł",
	"L":  "Ł",
	"i":  "ı",
}

// RemoveLatexCommands strips LaTeX markup from text:
//   - control words such as \emph or \textbf are dropped, their arguments kept,
//     together with the single space that terminates them
//   - unescaped braces are removed
//   - escaped characters (\&, \%, \{, \\) become the literal character
//   - accent macros are folded into the accented letter (G\"{o}del -> Gödel)
//   - a tie (~) becomes a space
//
// The result is NFC-composed.
func RemoveLatexCommands(text string) string {
	if !strings.ContainsAny(text, `\{}~`) {
		return norm.NFC.String(text)
	}

	var sb strings.Builder
	sb.Grow(len(text))

	// pending holds a combining mark waiting for the next visible rune.
	var pending rune
	emit := func(r rune) {
		sb.WriteRune(r)
		if pending != 0 && !unicode.IsSpace(r) {
			sb.WriteRune(pending)
			pending = 0
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '{', '}':
			// braces only group
		case '~':
			emit(' ')
		case '\\':
			if i+1 >= len(runes) {
				emit(r)
				continue
			}
			next := runes[i+1]
			if mark, ok := accentMarks[next]; ok {
				pending = mark
				i++
				continue
			}
			if !unicode.IsLetter(next) {
				emit(next)
				i++
				continue
			}

			j := i + 1
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			name := string(runes[i+1 : j])
			i = j - 1
			// a control word swallows the space that terminates it
			if j < len(runes) && runes[j] == ' ' {
				i = j
			}

			if mark, ok := letterAccents[name]; ok {
				pending = mark
				continue
			}
			if sym, ok := symbols[name]; ok {
				for _, s := range sym {
					emit(s)
				}
			}
		default:
			emit(r)
		}
	}

	return norm.NFC.String(sb.String())
}
