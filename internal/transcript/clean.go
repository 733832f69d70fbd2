// Package transcript turns a generated dialogue transcript into speaker-tagged,
// budget-bounded chunks ready for speech synthesis.
//
// Every function in this package is a pure transformation: nothing here
// performs I/O, and the same input always produces the same output.
package transcript

import (
	"regexp"
	"strings"
)

// Regex patterns for non-spoken structural markup.
const (
	showNotesPattern     = `(?m)^### SHOW NOTES[\s\S]*?---`
	viralClipPattern     = `(?m)^### VIRAL CLIP SCRIPT[\s\S]*`
	separatorLinePattern = `(?m)^[-*_]{3,}[ \t]*$`
	actionPattern        = `(?i)\[ACTION:[^\]\n]*\]`
	emphasisPattern      = `\[\*\*[^\]\n]*?\*\*\]`
	musicPattern         = `(?i)\[[^\]\n]*?music[^\]\n]*\]`
	sfxPattern           = `(?i)\[[^\]\n]*?sfx[^\]\n]*\]`
	blankRunPattern      = `\n{3,}`
)

type cleanRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var cleanRules = []cleanRule{
	{pattern: regexp.MustCompile(showNotesPattern)},
	{pattern: regexp.MustCompile(viralClipPattern)},
	{pattern: regexp.MustCompile(separatorLinePattern)},
	{pattern: regexp.MustCompile(actionPattern)},
	{pattern: regexp.MustCompile(emphasisPattern)},
	{pattern: regexp.MustCompile(musicPattern)},
	{pattern: regexp.MustCompile(sfxPattern)},
	{pattern: regexp.MustCompile(blankRunPattern), replacement: "\n\n"},
}

var lineEndingReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Clean strips show notes, the viral clip appendix, separator lines and
// bracketed action/music/sfx annotations, then collapses blank-line runs and
// trims the result.
//
// Clean is idempotent: passes are repeated until the text stops changing.
// Every pass that changes the text shortens it, so the loop terminates.
func Clean(text string) string {
	current := lineEndingReplacer.Replace(text)

	for {
		next := cleanPass(current)
		if next == current {
			return next
		}

		current = next
	}
}

func cleanPass(text string) string {
	for _, rule := range cleanRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}

	return strings.TrimSpace(text)
}
