// Package synthesis turns packed transcript chunks into decoded audio by calling
// a speech-synthesis service, one chunk at a time with bounded retries.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/gemini"
)

// DefaultModel is the speech model used when none is configured.
const DefaultModel = "gemini-2.5-flash-preview-tts"

const directivesFormat = "TTS the following conversation. Performance: %s tone, %s pacing, spoken in %s.\n\n"

// ErrTextEmpty is returned for a request without text.
var ErrTextEmpty = errors.New("text cannot be empty")

// Client is a core.SpeechSynthesizer backed by a Gemini speech model.
type Client struct {
	api   *gemini.Client
	model string
}

// NewClient wraps api for the given model. An empty model selects DefaultModel.
func NewClient(api *gemini.Client, model string) *Client {
	if model == "" {
		model = DefaultModel
	}

	return &Client{api: api, model: model}
}

// Synthesize requests audio for one formatted chunk. It returns nil data when
// the service answers without an audio part.
func (c *Client) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}

	resp, err := c.api.GenerateContent(ctx, c.model, gemini.UserText(Prompt(req)), BuildConfig(req))
	if err != nil {
		return nil, err
	}

	inline := gemini.InlineData(resp)
	if inline == nil || len(inline.Data) == 0 {
		return nil, nil
	}

	return inline.Data, nil
}

// HealthCheck verifies the speech model is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.api.HealthCheck(ctx, c.model)
}

// BuildConfig selects audio output and maps each speaker to its voice. A
// single voice uses the plain voice config.
func BuildConfig(req core.SpeechRequest) *genai.GenerateContentConfig {
	speechConfig := &genai.SpeechConfig{LanguageCode: req.Directives.LanguageCode}

	switch len(req.Voices) {
	case 0:
	case 1:
		speechConfig.VoiceConfig = prebuiltVoice(req.Voices[0].Voice)
	default:
		configs := make([]*genai.SpeakerVoiceConfig, 0, len(req.Voices))
		for _, voice := range req.Voices {
			configs = append(configs, &genai.SpeakerVoiceConfig{
				Speaker:     voice.Speaker,
				VoiceConfig: prebuiltVoice(voice.Voice),
			})
		}

		speechConfig.MultiSpeakerVoiceConfig = &genai.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: configs}
	}

	return &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig:       speechConfig,
	}
}

func prebuiltVoice(name string) *genai.VoiceConfig {
	return &genai.VoiceConfig{PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name}}
}

// Prompt prefixes the chunk text with the performance directives, when any are set.
func Prompt(req core.SpeechRequest) string {
	directives := req.Directives
	if directives.Tone == "" && directives.Pacing == "" && directives.Language == "" {
		return req.Text
	}

	return fmt.Sprintf(directivesFormat,
		orDefault(directives.Tone, "natural"),
		orDefault(directives.Pacing, "conversational"),
		orDefault(directives.Language, "English")) + req.Text
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
