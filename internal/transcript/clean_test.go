package transcript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

func TestClean_RemovesStructuralMarkup(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "show notes block",
			input:    "### SHOW NOTES\n**Title:** Deep Sleep\n**Summary:** Why we dream.\n---\n**[ALEX]** Hi.",
			expected: "**[ALEX]** Hi.",
		},
		{
			name:     "viral clip appendix",
			input:    "**[ALEX]** Hi.\n\n### VIRAL CLIP SCRIPT\n**[ALEX]** Clip line.",
			expected: "**[ALEX]** Hi.",
		},
		{
			name:     "separator lines",
			input:    "**[ALEX]** One.\n---\n**[SARAH]** Two.\n***\n___",
			expected: "**[ALEX]** One.\n\n**[SARAH]** Two.",
		},
		{
			name:     "action annotation",
			input:    "**[ALEX]** Hi.\n[ACTION: Alex laughs]\n**[SARAH]** Hello.",
			expected: "**[ALEX]** Hi.\n\n**[SARAH]** Hello.",
		},
		{
			name:     "music and sfx brackets",
			input:    "[Intro Music]\n**[ALEX]** Hi.\n[sfx: door slams]",
			expected: "**[ALEX]** Hi.",
		},
		{
			name:     "emphasis wrapped bracket",
			input:    "[**Transition**]\n**[ALEX]** Hi.",
			expected: "**[ALEX]** Hi.",
		},
		{
			name:     "blank line runs",
			input:    "**[ALEX]** Hi.\n\n\n\n\n**[SARAH]** Hello.",
			expected: "**[ALEX]** Hi.\n\n**[SARAH]** Hello.",
		},
		{
			name:     "carriage returns",
			input:    "**[ALEX]** Hi.\r\n\r\n\r\n\r\n**[SARAH]** Hello.",
			expected: "**[ALEX]** Hi.\n\n**[SARAH]** Hello.",
		},
		{
			name:     "nothing to remove",
			input:    "  **[ALEX]** Plain dialogue.  ",
			expected: "**[ALEX]** Plain dialogue.",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, transcript.Clean(testCase.input))
		})
	}
}

func TestClean_KeepsSpeakerTagsNextToAnnotations(t *testing.T) {
	t.Parallel()

	cleaned := transcript.Clean("**[ALEX]** [ACTION: sighs] Well. [Music fades] **[SARAH]** Right.")

	assert.Contains(t, cleaned, "**[ALEX]**")
	assert.Contains(t, cleaned, "**[SARAH]** Right.")
	assert.NotContains(t, cleaned, "ACTION")
	assert.NotContains(t, cleaned, "Music")
}

func TestClean_IsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"**[ALEX]** Hi there. Good morning. **[SARAH]** Hello!",
		"### SHOW NOTES\nnotes\n---\n\n\n\n**[ALEX]** Hi.\n---\n### VIRAL CLIP SCRIPT\nclip",
		"-----\n\n\n\n----\n***",
		"[[ACTION: x]ACTION: y]\n\n\n\n[MUSIC [SFX]]",
		"**[ALEX]** [SFX: boom]\n\n\n[ACTION: nods]\n\n\n**[SARAH]** Ok.",
		"\r\n\r\n\r\n  text  \r\n---\r\n",
		"[**[**x**]**]",
	}

	for _, input := range inputs {
		once := transcript.Clean(input)
		assert.Equal(t, once, transcript.Clean(once), "input %q", input)
	}
}
