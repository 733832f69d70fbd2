package podcast_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	opts := podcast.Default()

	require.NoError(t, opts.Validate())
	assert.Equal(t, "Mind Matters", opts.Name)
	assert.Equal(t, 5, opts.Duration)
	assert.Equal(t, "Conversational (Default)", opts.Pacing)
	assert.Equal(t, "Standard (Transitions)", opts.SoundDesign)
	assert.Equal(t, []string{"Alex", "Sarah"}, opts.SpeakerNames())
	assert.False(t, opts.ShowNotes)
}

func TestValidate_RejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*podcast.Options)
	}{
		{name: "empty name", mutate: func(o *podcast.Options) { o.Name = " " }},
		{name: "empty audience", mutate: func(o *podcast.Options) { o.Audience = "" }},
		{name: "duration", mutate: func(o *podcast.Options) { o.Duration = 7 }},
		{name: "tone", mutate: func(o *podcast.Options) { o.Tone = "Whispering" }},
		{name: "language", mutate: func(o *podcast.Options) { o.Language = "Klingon" }},
		{name: "pacing", mutate: func(o *podcast.Options) { o.Pacing = "" }},
		{name: "conclusion", mutate: func(o *podcast.Options) { o.ConclusionStyle = "Cliffhanger" }},
		{name: "host voice", mutate: func(o *podcast.Options) { o.Host.Voice = "Nova" }},
		{name: "guest gender", mutate: func(o *podcast.Options) { o.Guest.Gender = "Other" }},
		{name: "speaker name with punctuation", mutate: func(o *podcast.Options) { o.Guest.Name = "Dr. Who" }},
		{name: "reserved speaker name", mutate: func(o *podcast.Options) { o.Guest.Name = "Scene" }},
		{name: "duplicate speakers", mutate: func(o *podcast.Options) { o.Guest.Name = "ALEX" }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			opts := podcast.Default()
			testCase.mutate(&opts)

			err := opts.Validate()

			require.Error(t, err)
			require.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestLoadOptions(t *testing.T) {
	t.Parallel()

	tomlData := `
name = "Night Shift"
duration = 15
tone = "Casual Banter"
language = "Spanish"
show_notes = true

[guest]
name = "Marta"
gender = "Female"
voice = "Zephyr"
`

	path := filepath.Join(t.TempDir(), "episode.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlData), 0o600))

	opts, err := podcast.LoadOptions(path)
	require.NoError(t, err)

	assert.Equal(t, "Night Shift", opts.Name)
	assert.Equal(t, 15, opts.Duration)
	assert.Equal(t, "Casual Banter", opts.Tone)
	assert.True(t, opts.ShowNotes)
	assert.Equal(t, podcast.Speaker{Name: "Marta", Gender: podcast.GenderFemale, Voice: "Zephyr"}, opts.Guest)
	assert.Equal(t, "Alex", opts.Host.Name)
	assert.Equal(t, "Host & Guest Interview", podcast.Formats[1])
	assert.Equal(t, podcast.Formats[0], opts.Format)
}

func TestLoadOptions_Errors(t *testing.T) {
	t.Parallel()

	_, missingErr := podcast.LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, missingErr)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`duration = 9`), 0o600))

	_, invalidErr := podcast.LoadOptions(path)
	require.ErrorIs(t, invalidErr, core.ErrConfiguration)
}

func TestVoices(t *testing.T) {
	t.Parallel()

	profile, ok := podcast.FindVoice("charon")
	require.True(t, ok)
	assert.Equal(t, "Deep, authoritative", profile.Description)
}

func TestLanguageTag(t *testing.T) {
	t.Parallel()

	tag, err := podcast.LanguageTag("Persian")
	require.NoError(t, err)

	base, _ := tag.Base()
	assert.Equal(t, language.MustParseBase("fa"), base)

	opts := podcast.Default()
	code, codeErr := opts.LanguageCode()
	require.NoError(t, codeErr)
	assert.Equal(t, "en-US", code)

	_, unknownErr := podcast.LanguageTag("Latin")
	require.Error(t, unknownErr)
}

func TestFillVoices_UsesGenderDefault(t *testing.T) {
	t.Parallel()

	opts := podcast.Default()
	opts.Host = podcast.Speaker{Name: "Omar", Gender: podcast.GenderMale}
	opts.Guest = podcast.Speaker{Name: "Lena", Gender: podcast.GenderFemale, Voice: "Zephyr"}

	opts.FillVoices()

	assert.Equal(t, "Puck", opts.Host.Voice)
	assert.Equal(t, "Zephyr", opts.Guest.Voice)
	require.NoError(t, opts.Validate())
}

func TestLoadOptions_MissingVoiceFallsBackToGender(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "episode.toml")
	body := `
[host]
name = "Omar"
gender = "Male"
voice = ""

[guest]
name = "Lena"
gender = "Female"
voice = ""
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	opts, err := podcast.LoadOptions(path)
	require.NoError(t, err)

	assert.Equal(t, "Puck", opts.Host.Voice)
	assert.Equal(t, "Kore", opts.Guest.Voice)
}
