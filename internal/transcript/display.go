package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

// LineType classifies a transcript line for display and export.
type LineType string

// Line types.
const (
	LineSeparator LineType = "separator"
	LineNote      LineType = "note"
	LineAction    LineType = "action"
	LineDialogue  LineType = "dialogue"
	LineText      LineType = "text"
)

// Markers recognised by ParseLine.
const (
	showNotesHeading = "### SHOW NOTES"
	viralClipHeading = "### VIRAL CLIP SCRIPT"
	titleNote        = "**Title:**"
	summaryNote      = "**Summary:**"
	actionOpen       = "[ACTION:"
	hostAlias        = "HOST"
	guestAlias       = "GUEST"
	lineIDFormat     = "line-%d"
)

var (
	actionOpenRegex = regexp.MustCompile(`(?i)^\[ACTION:\s*`)
	tagCharReplacer = strings.NewReplacer("*", "", "[", "", "]", "", ":", "")
)

// Line is one classified transcript line.
type Line struct {
	ID      string
	Type    LineType
	Speaker string
	Content string
	IsHost  bool
}

// ParseLine classifies a raw transcript line. host and guest are the
// configured speaker names and decide IsHost for dialogue lines.
func ParseLine(text string, index int, host, guest string) Line {
	trimmed := strings.TrimSpace(text)
	id := fmt.Sprintf(lineIDFormat, index)
	hostName := strings.ToUpper(host)

	switch {
	case trimmed == "---" || trimmed == "***":
		return Line{ID: id, Type: LineSeparator}
	case strings.HasPrefix(trimmed, showNotesHeading) || strings.HasPrefix(trimmed, viralClipHeading):
		return Line{ID: id, Type: LineNote, Content: strings.TrimSpace(strings.Replace(trimmed, "###", "", 1))}
	case strings.HasPrefix(trimmed, titleNote) || strings.HasPrefix(trimmed, summaryNote):
		return Line{ID: id, Type: LineNote, Content: trimmed}
	case strings.HasPrefix(trimmed, actionOpen):
		content := strings.TrimSuffix(actionOpenRegex.ReplaceAllString(trimmed, ""), "]")

		return Line{ID: id, Type: LineAction, Content: strings.TrimSpace(content)}
	}

	if name, content, ok := ParseSpeakerTag(trimmed); ok {
		return Line{
			ID:      id,
			Type:    LineDialogue,
			Speaker: name,
			Content: content,
			IsHost:  strings.Contains(name, hostName) || strings.Contains(name, hostAlias),
		}
	}

	if len(trimmed) < maxSpeakerNameLength {
		bare := strings.ToUpper(strings.TrimSpace(tagCharReplacer.Replace(trimmed)))
		guestName := strings.ToUpper(guest)

		if bare != "" && (bare == hostName || bare == guestName || bare == hostAlias || bare == guestAlias) {
			return Line{
				ID:      id,
				Type:    LineDialogue,
				Speaker: bare,
				IsHost:  bare == hostName || bare == hostAlias,
			}
		}
	}

	return Line{ID: id, Type: LineText, Content: text}
}

// Export renders the transcript as plain text. In reader mode, action and
// separator lines are dropped and dialogue is written as "SPEAKER: content".
func Export(content string, readerMode bool, host, guest string) string {
	if !readerMode {
		return strings.TrimSpace(lineEndingReplacer.Replace(content)) + "\n"
	}

	var builder strings.Builder

	index := 0

	for _, raw := range strings.Split(lineEndingReplacer.Replace(content), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line := ParseLine(raw, index, host, guest)
		index++

		switch line.Type {
		case LineAction, LineSeparator:
			continue
		case LineDialogue:
			if line.Content == "" {
				builder.WriteString(line.Speaker + ":\n")
			} else {
				builder.WriteString(line.Speaker + ": " + line.Content + "\n")
			}
		case LineNote, LineText:
			builder.WriteString(strings.TrimSpace(line.Content) + "\n")
		}
	}

	return builder.String()
}
