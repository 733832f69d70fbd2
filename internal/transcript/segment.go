package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Speaker tag detection.
const (
	speakerTagPattern = `^(?:\*\*|\[)*([A-Za-z0-9\s\-_]+)(?:\*\*|\]|:)+\s*(.*)$`
	inlineTagPattern  = `(\S)[ \t]*(\*\*\[[A-Za-z0-9 _-]+\]\*\*)`

	maxSpeakerNameLength = 30
)

// Names that look like tags but mark stage directions.
const (
	reservedActionPrefix = "ACTION"
	reservedScene        = "SCENE"
	reservedMusic        = "MUSIC"
	reservedSFX          = "SFX"
)

var (
	speakerTagRegex = regexp.MustCompile(speakerTagPattern)
	inlineTagRegex  = regexp.MustCompile(inlineTagPattern)
)

// Segment is one contiguous run of one speaker's lines.
type Segment struct {
	Speaker string
	Text    string
}

// ParseSpeakerTag reports whether line opens with a speaker tag such as
// "**[ALEX]** text", "[ALEX] text" or "ALEX: text". The returned name is
// upper-cased; content is whatever follows the tag on the same line.
//
// This is a heuristic: a short line of ordinary text ending in a colon is
// indistinguishable from a tag and will be reported as one.
func ParseSpeakerTag(line string) (name, content string, ok bool) {
	match := speakerTagRegex.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return "", "", false
	}

	name = strings.ToUpper(strings.TrimSpace(match[1]))
	if name == "" || !IsValidSpeaker(name) {
		return "", "", false
	}

	return name, strings.TrimSpace(match[2]), true
}

// IsValidSpeaker rejects tag-shaped names that are really stage directions.
// The name is expected upper-cased.
func IsValidSpeaker(name string) bool {
	return !strings.HasPrefix(name, reservedActionPrefix) &&
		name != reservedScene &&
		!strings.Contains(name, reservedMusic) &&
		!strings.Contains(name, reservedSFX) &&
		utf8.RuneCountInString(name) < maxSpeakerNameLength
}

// SegmentTranscript splits cleaned text into speaker-attributed segments.
// Lines before the first tag belong to defaultSpeaker.
func SegmentTranscript(cleaned, defaultSpeaker string) []Segment {
	segmenter := speakerState{speaker: strings.ToUpper(strings.TrimSpace(defaultSpeaker))}

	for _, line := range strings.Split(splitInlineTags(cleaned), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		name, content, ok := ParseSpeakerTag(trimmed)
		if !ok {
			segmenter.buffer = append(segmenter.buffer, trimmed)

			continue
		}

		segmenter.flush()
		segmenter.speaker = name

		if content != "" {
			segmenter.buffer = append(segmenter.buffer, content)
		}
	}

	segmenter.flush()

	return segmenter.segments
}

// splitInlineTags moves a "**[NAME]**" tag that follows other text onto its
// own line so every tag starts a line.
func splitInlineTags(text string) string {
	return inlineTagRegex.ReplaceAllString(text, "${1}\n${2}")
}

type speakerState struct {
	speaker  string
	buffer   []string
	segments []Segment
}

func (s *speakerState) flush() {
	if len(s.buffer) == 0 {
		return
	}

	s.segments = append(s.segments, Segment{
		Speaker: s.speaker,
		Text:    strings.TrimSpace(strings.Join(s.buffer, " ")),
	})
	s.buffer = nil
}
