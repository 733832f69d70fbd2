package transcript

import (
	"regexp"
	"strings"
)

const genericTagPattern = `\*\*\[(.*?)(?:\]\*\*|\])`

var genericTagRegex = regexp.MustCompile(genericTagPattern)

type speakerRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Formatter rewrites packer tag tokens into the "Name:" convention the speech
// service uses to pick a voice per line.
type Formatter struct {
	rules []speakerRule
}

// NewFormatter builds a formatter for the configured speaker names. A tag
// matching one of them, case-insensitively, is rendered with the configured casing.
func NewFormatter(speakers ...string) *Formatter {
	rules := make([]speakerRule, 0, len(speakers))

	for _, speaker := range speakers {
		name := strings.TrimSpace(speaker)
		if name == "" {
			continue
		}

		rules = append(rules, speakerRule{
			pattern:     regexp.MustCompile(`(?i)\*\*\[` + regexp.QuoteMeta(name) + `\]\*\*`),
			replacement: name + ":",
		})
	}

	return &Formatter{rules: rules}
}

// Format converts every tag token in chunk and folds paragraph breaks into
// single line breaks.
func (f *Formatter) Format(chunk string) string {
	formatted := chunk

	for _, rule := range f.rules {
		formatted = rule.pattern.ReplaceAllLiteralString(formatted, rule.replacement)
	}

	formatted = genericTagRegex.ReplaceAllString(formatted, "${1}:")

	return strings.ReplaceAll(formatted, "\n\n", "\n")
}
