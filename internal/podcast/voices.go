package podcast

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// VoiceProfile describes one prebuilt synthesis voice.
type VoiceProfile struct {
	Name        string
	Gender      Gender
	Description string
}

// VoiceProfiles lists the prebuilt voices offered for speakers.
var VoiceProfiles = []VoiceProfile{
	{Name: "Puck", Gender: GenderMale, Description: "Deep, rough"},
	{Name: "Charon", Gender: GenderMale, Description: "Deep, authoritative"},
	{Name: "Kore", Gender: GenderFemale, Description: "Soft, calm"},
	{Name: "Fenrir", Gender: GenderMale, Description: "High energy"},
	{Name: "Zephyr", Gender: GenderFemale, Description: "Balanced, clear"},
}

// Locale used for each supported language when requesting speech.
var languageLocales = map[string]string{
	"English":    "en-US",
	"Spanish":    "es-US",
	"French":     "fr-FR",
	"German":     "de-DE",
	"Portuguese": "pt-BR",
	"Japanese":   "ja-JP",
	"Persian":    "fa-IR",
}

// FindVoice looks up a voice by name, ignoring case.
func FindVoice(name string) (VoiceProfile, bool) {
	for _, profile := range VoiceProfiles {
		if strings.EqualFold(profile.Name, strings.TrimSpace(name)) {
			return profile, true
		}
	}

	return VoiceProfile{}, false
}

// defaultVoice returns the first voice registered for gender.
func defaultVoice(gender Gender) VoiceProfile {
	for _, profile := range VoiceProfiles {
		if profile.Gender == gender {
			return profile
		}
	}

	return VoiceProfiles[0]
}

// FillVoices gives every speaker without a voice the default voice for its
// gender.
func (o *Options) FillVoices() {
	for _, speaker := range []*Speaker{&o.Host, &o.Guest} {
		if strings.TrimSpace(speaker.Voice) == "" {
			speaker.Voice = defaultVoice(speaker.Gender).Name
		}
	}
}

// LanguageTag maps a language option to its BCP 47 tag.
func LanguageTag(name string) (language.Tag, error) {
	locale, ok := languageLocales[name]
	if !ok {
		return language.Und, fmt.Errorf(errFmtUnsupported, "language", name)
	}

	tag, parseErr := language.Parse(locale)
	if parseErr != nil {
		return language.Und, fmt.Errorf("failed to parse locale %s: %w", locale, parseErr)
	}

	return tag, nil
}

// LanguageCode returns the locale string sent with speech requests.
func (o *Options) LanguageCode() (string, error) {
	tag, tagErr := LanguageTag(o.Language)
	if tagErr != nil {
		return "", tagErr
	}

	return tag.String(), nil
}
