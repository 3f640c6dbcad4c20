package reference

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text into the form used for loose name comparison: lower-cased,
// compatibility-decomposed, quotes dropped, brackets and separator punctuation turned
// into spaces, whitespace collapsed and trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	decomposed := norm.NFKD.String(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case isQuote(r):
		case isBracket(r), isSeparator(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isQuote(r rune) bool {
	switch r {
	case '\'', '"', '`', '´', '‘', '’', '‚', '‛', '“', '”', '„', '‟', '′', '″':
		return true
	}
	return false
}

func isBracket(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '/', '\\', '|', '!', '?', '~', '-', '–', '—', '_',
		'+', '*', '=', '<', '>', '@', '#', '%', '^', '&':
		return true
	}
	return false
}

// EscapeForRegex backslash-escapes every regex metacharacter in text so that it can be
// spliced into a pattern as a literal.
func EscapeForRegex(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		switch r {
		case '.', '*', '+', '?', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
