package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\._[](){}#|!+-=*~>` + "`"

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split breaks text into pieces of at most limit runes. A piece ends after
// the last newline of its second half when there is one. An escaping
// backslash always stays with the character it escapes.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if limit < 2 || len(runes) <= limit {
		return []string{text}
	}

	var pieces []string

	for len(runes) > limit {
		cut := limit

		if nl := lastIndex(runes[limit/2:limit], '\n'); nl >= 0 {
			cut = limit/2 + nl + 1
		} else if trailingBackslashes(runes[:cut])%2 == 1 {
			cut--
		}

		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}

	return pieces
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}

	return -1
}

func trailingBackslashes(runes []rune) int {
	n := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		n++
	}

	return n
}
