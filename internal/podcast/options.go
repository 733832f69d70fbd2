// Package podcast defines the episode options that drive script generation and
// speech synthesis, together with the enumerated choices each option accepts.
package podcast

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

// Gender selects the default voice for a speaker.
type Gender string

// Supported genders.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Defaults used by Default.
const (
	DefaultName     = "Mind Matters"
	DefaultDuration = 5
	DefaultAudience = "General Public"
)

const (
	errFmtUnsupported = "unsupported %s %q"
	errFmtReadOptions = "failed to read episode options from %s: %w"
	errFmtDecode      = "failed to decode episode options from %s: %w"
)

var (
	errEmptyName         = errors.New("podcast name is required")
	errEmptyAudience     = errors.New("target audience is required")
	errDuplicateSpeakers = errors.New("host and guest must have different names")
)

// Enumerated option sets.
var (
	Durations   = []int{5, 15, 30, 45, 60}
	Tones       = []string{"Neutral & Balanced", "Heated Debate", "Casual Banter", "NPR Style / Serious", "High Energy / Radio", "Investigative"}
	Formats     = []string{"Standard Debate (2 Sides)", "Host & Guest Interview", "Roundtable Discussion", "Narrative Storytelling", "Educational / Explainer"}
	Languages   = []string{"English", "Spanish", "French", "German", "Portuguese", "Japanese", "Persian"}
	IntroStyles = []string{"Standard Welcome", "Cold Open (Hook First)", "Teaser (Highlight Clip)"}
	Pacings     = []string{"Relaxed (Slow)", "Conversational (Default)", "Rapid-Fire (Fast)"}
	Balances    = []string{"Balanced (50/50)", "Host-Led (70/30)", "Guest-Star (30/70)"}
	SoundDesign = []string{"Clean (Dialogue Only)", "Standard (Transitions)", "Cinematic (Rich SFX)"}
	MusicGenres = []string{"Lo-Fi / Chill", "Corporate / Tech", "Cinematic / Orchestral", "Jazz / Lounge", "Electronic / Upbeat"}
	Vocabulary  = []string{"Accessible", "Sophisticated", "Academic", "Simplified (ESL)"}
	Conclusions = []string{"Thought Provoking Question", "Direct Call to Action", "Abrupt Fade Out", "Summarizing Wrap-up"}
)

// Speaker is one voice in the episode.
type Speaker struct {
	Name   string `toml:"name"   json:"name"`
	Gender Gender `toml:"gender" json:"gender"`
	Voice  string `toml:"voice"  json:"voice"`
}

// Options describes one episode.
type Options struct {
	Name               string  `toml:"name"                json:"name"`
	Duration           int     `toml:"duration"            json:"duration"`
	Tone               string  `toml:"tone"                json:"tone"`
	Format             string  `toml:"format"              json:"format"`
	Audience           string  `toml:"audience"            json:"audience"`
	Language           string  `toml:"language"            json:"language"`
	IntroStyle         string  `toml:"intro_style"         json:"introStyle"`
	Pacing             string  `toml:"pacing"              json:"pacing"`
	Host               Speaker `toml:"host"                json:"host"`
	Guest              Speaker `toml:"guest"               json:"guest"`
	SpeakerBalance     string  `toml:"speaker_balance"     json:"speakerBalance"`
	SoundDesign        string  `toml:"sound_design"        json:"soundDesign"`
	MusicGenre         string  `toml:"music_genre"         json:"musicGenre"`
	VocabularyLevel    string  `toml:"vocabulary_level"    json:"vocabularyLevel"`
	ConclusionStyle    string  `toml:"conclusion_style"    json:"conclusionStyle"`
	ShowNotes          bool    `toml:"show_notes"          json:"showNotes"`
	ViralClip          bool    `toml:"viral_clip"          json:"viralClip"`
	CriticalAnalysis   bool    `toml:"critical_analysis"   json:"criticalAnalysis"`
	CustomInstructions string  `toml:"custom_instructions" json:"customInstructions"`
}

// Default returns a complete, valid episode configuration.
func Default() Options {
	return Options{
		Name:            DefaultName,
		Duration:        DefaultDuration,
		Tone:            Tones[0],
		Format:          Formats[0],
		Audience:        DefaultAudience,
		Language:        Languages[0],
		IntroStyle:      IntroStyles[0],
		Pacing:          Pacings[1],
		Host:            Speaker{Name: "Alex", Gender: GenderMale, Voice: "Puck"},
		Guest:           Speaker{Name: "Sarah", Gender: GenderFemale, Voice: "Kore"},
		SpeakerBalance:  Balances[0],
		SoundDesign:     SoundDesign[1],
		MusicGenre:      MusicGenres[0],
		VocabularyLevel: Vocabulary[0],
		ConclusionStyle: Conclusions[0],
	}
}

// LoadOptions reads episode options from a TOML file. Keys missing from the
// file keep their Default values and an empty speaker voice falls back to the
// default voice for the speaker's gender.
func LoadOptions(path string) (Options, error) {
	opts := Default()

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return opts, fmt.Errorf(errFmtReadOptions, path, readErr)
	}

	decodeErr := toml.Unmarshal(data, &opts)
	if decodeErr != nil {
		return opts, fmt.Errorf(errFmtDecode, path, decodeErr)
	}

	opts.FillVoices()

	validateErr := opts.Validate()
	if validateErr != nil {
		return opts, validateErr
	}

	return opts, nil
}

// Validate checks every enumerated option and both speakers. Failures wrap
// core.ErrConfiguration.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, errEmptyName)
	}

	if strings.TrimSpace(o.Audience) == "" {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, errEmptyAudience)
	}

	if !slices.Contains(Durations, o.Duration) {
		return fmt.Errorf("%w: "+errFmtUnsupported, core.ErrConfiguration, "duration", fmt.Sprint(o.Duration))
	}

	choices := []struct {
		field string
		value string
		set   []string
	}{
		{"tone", o.Tone, Tones},
		{"format", o.Format, Formats},
		{"language", o.Language, Languages},
		{"intro style", o.IntroStyle, IntroStyles},
		{"pacing", o.Pacing, Pacings},
		{"speaker balance", o.SpeakerBalance, Balances},
		{"sound design", o.SoundDesign, SoundDesign},
		{"music genre", o.MusicGenre, MusicGenres},
		{"vocabulary level", o.VocabularyLevel, Vocabulary},
		{"conclusion style", o.ConclusionStyle, Conclusions},
	}

	for _, choice := range choices {
		if !slices.Contains(choice.set, choice.value) {
			return fmt.Errorf("%w: "+errFmtUnsupported, core.ErrConfiguration, choice.field, choice.value)
		}
	}

	for _, speaker := range []Speaker{o.Host, o.Guest} {
		speakerErr := speaker.validate()
		if speakerErr != nil {
			return fmt.Errorf("%w: %w", core.ErrConfiguration, speakerErr)
		}
	}

	if strings.EqualFold(strings.TrimSpace(o.Host.Name), strings.TrimSpace(o.Guest.Name)) {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, errDuplicateSpeakers)
	}

	return nil
}

// SpeakerNames returns the host and guest display names.
func (o *Options) SpeakerNames() []string {
	return []string{o.Host.Name, o.Guest.Name}
}

// Tag returns the speaker tag name used in transcripts.
func (s Speaker) Tag() string {
	return strings.ToUpper(strings.TrimSpace(s.Name))
}

func (s Speaker) validate() error {
	if s.Tag() == "" || !transcript.IsValidSpeaker(s.Tag()) {
		return fmt.Errorf(errFmtUnsupported, "speaker name", s.Name)
	}

	if name, _, ok := transcript.ParseSpeakerTag(transcript.TagToken(s.Tag())); !ok || name != s.Tag() {
		return fmt.Errorf(errFmtUnsupported, "speaker name", s.Name)
	}

	if s.Gender != GenderMale && s.Gender != GenderFemale {
		return fmt.Errorf(errFmtUnsupported, "gender", string(s.Gender))
	}

	if _, ok := FindVoice(s.Voice); !ok {
		return fmt.Errorf(errFmtUnsupported, "voice", s.Voice)
	}

	return nil
}
