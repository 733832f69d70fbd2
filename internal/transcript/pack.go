package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Speaker tag token emitted by the packer and consumed by Formatter and StripTags.
const (
	speakerSwitchPrefix = "\n\n"
	continuationPrefix  = " "
	tagTokenPattern     = `\s*\*\*\[[^\]\n]*\]\*\*\s*`
)

var tagTokenRegex = regexp.MustCompile(tagTokenPattern)

// TagToken renders the speaker tag placed in front of an atom.
func TagToken(speaker string) string {
	return "**[" + speaker + "]** "
}

// Pack greedily packs atoms into chunks of at most maxLength runes. An atom is
// never split: an atom whose tagged text alone exceeds maxLength becomes its
// own chunk, which is the only case where a chunk exceeds the budget.
func Pack(atoms []Atom, maxLength int) []string {
	var (
		chunks          []string
		current         strings.Builder
		currentLength   int
		trailingSpeaker string
	)

	closeChunk := func() {
		chunks = append(chunks, current.String())
		current.Reset()

		currentLength = 0
	}

	appendText := func(text string) {
		current.WriteString(text)

		currentLength += utf8.RuneCountInString(text)
	}

	for _, atom := range atoms {
		isNewChunk := currentLength == 0

		var prefix string

		switch {
		case isNewChunk:
			prefix = TagToken(atom.Speaker)
		case atom.Speaker != trailingSpeaker:
			prefix = speakerSwitchPrefix + TagToken(atom.Speaker)
		default:
			prefix = continuationPrefix
		}

		payload := prefix + atom.Text

		if !isNewChunk && currentLength+utf8.RuneCountInString(payload) > maxLength {
			closeChunk()
			appendText(TagToken(atom.Speaker) + atom.Text)
		} else {
			appendText(payload)
		}

		trailingSpeaker = atom.Speaker
	}

	if currentLength > 0 {
		closeChunk()
	}

	return chunks
}

// StripTags removes every speaker tag token from chunk and returns the spoken
// text, with each tag boundary collapsed to a single space.
func StripTags(chunk string) string {
	return strings.TrimSpace(tagTokenRegex.ReplaceAllString(chunk, " "))
}
