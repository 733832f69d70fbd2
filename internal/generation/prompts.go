package generation

import (
	"fmt"
	"strings"

	"github.com/book-expert/podcast-audio-service/internal/podcast"
)

// Source text limits applied to prompts and journal entries.
const (
	namingSourceLimit  = 1000
	journalSourceLimit = 500
	truncatedSuffix    = "... [truncated]"
)

const systemPromptTemplate = `
You are an AI-powered **%d-Minute Podcast Builder**.

**EPISODE CONFIG:**
* Name: %s
* Tone: %s
* Format: %s
* Audience: %s
* Language: %s (Output strictly in this language)
* Intro: %s
* Pacing: %s
* Balance: %s
* Sound design: %s
* Vocab: %s

**SPEAKERS:**
1. **%s** (%s) - Host
2. **%s** (%s) - Guest

**CREDIBILITY & PERSONA:**
* **NO FAKE EXPERTISE:** Do not refer to the speakers as "experts", "gurus", or "leading authorities" unless the source text explicitly says so.
* **PERSONA:** Act as enthusiastic "Commentators", "Evangelists", or "Curious Analysts".
* **CLAIMS:** Stick strictly to the provided source text. Do not hallucinate facts.
%s
**INSTRUCTIONS:**
1. **Sound:** Use [ACTION: <Desc>] for music/sfx.
   - Intro: [ACTION: Theme music fades in]
   - Breaks: [ACTION: %s Jingle]
2. **Format:**
%s   Begin with Intro (Welcome to %s).
   End with Conclusion (%s).
%s   Use ` + "`---`" + ` for segment breaks.

**OUTPUT:**
Strictly use speaker names: **[%s]** and **[%s]**.
Start every speaker turn on a new line with its tag.
Wrap non-spoken actions in [ACTION: ...].
%s`

const (
	criticalAnalysisRule = "* **FALLACIES:** Actively point out gaps or logical leaps in the source material.\n"
	showNotesRule        = "   Start with '### SHOW NOTES' (Title, Summary, Takeaways), closed by a `---` line.\n"
	viralClipRule        = "   Append '### VIRAL CLIP SCRIPT' at the very end.\n"
	customRuleFormat     = "\n**ADDITIONAL USER INSTRUCTIONS:**\n%s\n"
)

const namingPromptTemplate = `
Generate a creative %s podcast name in %s based on this text.
Tone: %s.
Audience: %s.
Max 5 words. No quotes.
Text: %s
`

// BuildSystemPrompt renders the script-writing instruction for opts.
func BuildSystemPrompt(opts *podcast.Options) string {
	var critical, showNotes, viralClip, custom string

	if opts.CriticalAnalysis {
		critical = criticalAnalysisRule
	}

	if opts.ShowNotes {
		showNotes = showNotesRule
	}

	if opts.ViralClip {
		viralClip = viralClipRule
	}

	if strings.TrimSpace(opts.CustomInstructions) != "" {
		custom = fmt.Sprintf(customRuleFormat, strings.TrimSpace(opts.CustomInstructions))
	}

	return fmt.Sprintf(systemPromptTemplate,
		opts.Duration,
		opts.Name, opts.Tone, opts.Format, opts.Audience, opts.Language,
		opts.IntroStyle, opts.Pacing, opts.SpeakerBalance, opts.SoundDesign, opts.VocabularyLevel,
		opts.Host.Tag(), opts.Host.Gender, opts.Guest.Tag(), opts.Guest.Gender,
		critical,
		opts.MusicGenre,
		showNotes, opts.Name, opts.ConclusionStyle,
		viralClip,
		opts.Host.Tag(), opts.Guest.Tag(),
		custom,
	)
}

// BuildNamingPrompt asks for an episode name based on the start of source.
func BuildNamingPrompt(source string, opts *podcast.Options) string {
	return fmt.Sprintf(namingPromptTemplate,
		opts.Tone, opts.Language, opts.Tone, opts.Audience, truncateRunes(source, namingSourceLimit))
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
