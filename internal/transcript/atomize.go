package transcript

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

const fallbackSentencePattern = `[^.?!]+[.?!]+(?:\s+|$)|[^.?!]+$`

var fallbackSentenceRegex = regexp.MustCompile(fallbackSentencePattern)

// Atom is one sentence, the smallest unit ever placed into a chunk.
type Atom struct {
	Speaker string
	Text    string
}

// Atomize splits every segment into sentences, keeping segment order,
// sentence order and speaker attribution.
func Atomize(segments []Segment) []Atom {
	var atoms []Atom

	for _, segment := range segments {
		for _, sentence := range SplitSentences(segment.Text) {
			atoms = append(atoms, Atom{Speaker: segment.Speaker, Text: sentence})
		}
	}

	return atoms
}

// SplitSentences splits text on Unicode sentence boundaries (UAX #29).
// Results are trimmed and empty sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string

	state := -1
	remaining := text

	for len(remaining) > 0 {
		var sentence string

		sentence, remaining, state = uniseg.FirstSentenceInString(remaining, state)

		trimmed := strings.TrimSpace(sentence)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	if len(sentences) == 0 {
		return SplitSentencesFallback(text)
	}

	return sentences
}

// SplitSentencesFallback splits on runs of ". ? !" using a plain regex rule.
func SplitSentencesFallback(text string) []string {
	matches := fallbackSentenceRegex.FindAllString(text, -1)
	if matches == nil {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}

		return nil
	}

	var sentences []string

	for _, match := range matches {
		trimmed := strings.TrimSpace(match)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	return sentences
}
