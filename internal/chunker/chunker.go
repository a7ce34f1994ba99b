package chunker

import (
	"strings"
	"unicode/utf8"
)

// Split packs whitespace-separated words of text into chunks of at most
// maxChunkSize characters. Words are never split, so a single word longer
// than maxChunkSize forms its own chunk. A non-positive maxChunkSize disables
// the limit.
func Split(text string, maxChunkSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if maxChunkSize <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		chunks  []string
		current []string
		length  int // Words plus one separator each.
	)

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		if len(current) > 0 && wordLen+length > maxChunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}

		current = append(current, word)
		length += wordLen + 1
	}

	return append(chunks, strings.Join(current, " "))
}
