package chunker_test

import (
	"docsummary/internal/chunker"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		if got := chunker.Split(text, 10); len(got) != 0 {
			t.Fatalf("expected no chunks for %q, got %q", text, got)
		}
	}
}

func TestSplitPacksWordsGreedily(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			"Fits in one chunk",
			"Hello world",
			100,
			[]string{"Hello world"},
		},
		{
			"Closes chunk before overflow",
			"aaa bbb ccc ddd",
			8,
			[]string{"aaa bbb", "ccc ddd"},
		},
		{
			"Normalizes whitespace",
			"  one\n\ntwo\tthree  ",
			100,
			[]string{"one two three"},
		},
		{
			"Oversized word is kept whole",
			"a supercalifragilistic b",
			5,
			[]string{"a", "supercalifragilistic", "b"},
		},
		{
			"Leading oversized word does not produce empty chunk",
			"supercalifragilistic tail",
			5,
			[]string{"supercalifragilistic", "tail"},
		},
		{
			"Trailing partial chunk is flushed",
			"aa bb cc",
			5,
			[]string{"aa bb", "cc"},
		},
		{
			"Non-positive limit keeps one chunk",
			"aa bb cc",
			0,
			[]string{"aa bb cc"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := chunker.Split(test.text, test.max)
			if strings.Join(got, "|") != strings.Join(test.want, "|") {
				t.Fatalf("chunks mismatch: got %q want %q", got, test.want)
			}
		})
	}
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	// Each word is 3 characters but 6 bytes.
	got := chunker.Split("жжж ššš", 7)
	if len(got) != 1 {
		t.Fatalf("expected one chunk, got %q", got)
	}
}

func TestSplitReconstructsAndBoundsRandomText(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	separators := []string{" ", "  ", "\n", "\t", " \n "}

	for range 200 {
		wordCount := rng.Intn(300)
		words := make([]string, 0, wordCount)

		var b strings.Builder
		for i := range wordCount {
			word := strings.Repeat(string(rune('a'+rng.Intn(26))), 1+rng.Intn(25))
			words = append(words, word)

			if i > 0 {
				b.WriteString(separators[rng.Intn(len(separators))])
			}
			b.WriteString(word)
		}

		maxSize := 1 + rng.Intn(60)
		chunks := chunker.Split(b.String(), maxSize)

		if wordCount > 0 && len(chunks) == 0 {
			t.Fatalf("expected chunks for non-empty input")
		}

		rebuilt := strings.Fields(strings.Join(chunks, " "))
		if strings.Join(rebuilt, " ") != strings.Join(words, " ") {
			t.Fatalf("reconstruction mismatch (max = %d)", maxSize)
		}

		for _, chunk := range chunks {
			if chunk == "" {
				t.Fatalf("unexpected empty chunk")
			}

			if utf8.RuneCountInString(chunk) > maxSize && len(strings.Fields(chunk)) != 1 {
				t.Fatalf("chunk %q exceeds %d characters", chunk, maxSize)
			}
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 500)

	first := chunker.Split(text, 120)
	second := chunker.Split(text, 120)

	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Fatalf("expected identical output for identical input")
	}
}
