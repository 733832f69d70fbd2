// Package generation writes podcast scripts and names with a Gemini text
// model. Script text is streamed to the caller as it arrives.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"google.golang.org/genai"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/gemini"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
)

// Defaults used when Settings leaves a field zero.
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 8192
)

// Naming fallbacks.
const (
	DefaultName  = podcast.DefaultName
	FallbackName = "The Daily Deep Dive"
	maxNameWords = 5
)

const (
	scriptJournalFormat = "SYSTEM:\n%s\n\nUSER INPUT:\n%s"
	errorJournalFormat  = "ERROR: %v"
	logFmtStreamFailed  = "Script stream failed after %d fragment(s): %v"
	logFmtScriptDone    = "Script generated: %d fragment(s), %d characters"
	logFmtNameFallback  = "Name generation failed, using %q: %v"
)

var errEmptySource = errors.New("source text cannot be empty")

// Settings configures the text model.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

var _ core.TextGenerator = (*Client)(nil)

// Client is a core.TextGenerator backed by Gemini.
type Client struct {
	api      *gemini.Client
	observer core.Observer
	log      *logger.Logger
	settings Settings
}

// NewClient fills zero settings with defaults. observer may be nil.
func NewClient(api *gemini.Client, observer core.Observer, log *logger.Logger, settings Settings) *Client {
	if settings.Model == "" {
		settings.Model = DefaultModel
	}

	if settings.Temperature <= 0 {
		settings.Temperature = DefaultTemperature
	}

	if settings.MaxTokens <= 0 {
		settings.MaxTokens = DefaultMaxTokens
	}

	if observer == nil {
		observer = discardObserver{}
	}

	return &Client{api: api, observer: observer, log: log, settings: settings}
}

// Generate performs one non-streaming call and returns the text.
func (c *Client) Generate(ctx context.Context, req core.ScriptRequest) (string, error) {
	resp, err := c.api.GenerateContent(ctx, c.settings.Model, gemini.UserText(req.Prompt), c.config(req))
	if err != nil {
		return "", err
	}

	return gemini.Text(resp), nil
}

// Stream delivers text fragments to onFragment in arrival order.
func (c *Client) Stream(ctx context.Context, req core.ScriptRequest, onFragment func(string) error) error {
	onResponse := func(resp *genai.GenerateContentResponse) error {
		fragment := gemini.Text(resp)
		if fragment == "" {
			return nil
		}

		return onFragment(fragment)
	}

	return c.api.StreamGenerateContent(ctx, c.settings.Model, gemini.UserText(req.Prompt), c.config(req), onResponse)
}

// StreamScript writes a script for source. Fragments reach onFragment as they
// arrive and the full text is returned. A failure mid-stream wraps
// core.ErrStreamingGeneration; fragments already delivered stay delivered and
// the partial text is returned with the error.
func (c *Client) StreamScript(
	ctx context.Context,
	source string,
	opts *podcast.Options,
	onFragment func(string),
) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("%w: %w", core.ErrValidation, errEmptySource)
	}

	system := BuildSystemPrompt(opts)
	journalPrompt := fmt.Sprintf(scriptJournalFormat, system, journalExcerpt(source))
	correlationID := c.observer.Request(core.LogKindScript, journalPrompt)

	var (
		builder   strings.Builder
		fragments int
	)

	streamErr := c.Stream(ctx, core.ScriptRequest{System: system, Prompt: source}, func(fragment string) error {
		builder.WriteString(fragment)

		fragments++

		if onFragment != nil {
			onFragment(fragment)
		}

		return nil
	})
	if streamErr != nil {
		c.observer.Failure(correlationID, fmt.Sprintf(errorJournalFormat, streamErr))
		c.log.Error(logFmtStreamFailed, fragments, streamErr)

		if ctx.Err() != nil {
			return builder.String(), fmt.Errorf("%w: %w: %w", core.ErrStreamingGeneration, core.ErrCanceled, streamErr)
		}

		return builder.String(), fmt.Errorf("%w: %w", core.ErrStreamingGeneration, streamErr)
	}

	script := builder.String()
	c.observer.Response(correlationID, script)
	c.log.Info(logFmtScriptDone, fragments, len(script))

	return script, nil
}

// GenerateName asks the model for an episode name and normalizes the answer
// with ParseName. Errors are returned unchanged.
func (c *Client) GenerateName(ctx context.Context, source string, opts *podcast.Options) (string, error) {
	prompt := BuildNamingPrompt(source, opts)
	correlationID := c.observer.Request(core.LogKindName, prompt)

	text, err := c.Generate(ctx, core.ScriptRequest{Prompt: prompt})
	if err != nil {
		c.observer.Failure(correlationID, fmt.Sprintf(errorJournalFormat, err))

		return "", err
	}

	name := ParseName(text)
	c.observer.Response(correlationID, name)

	return name, nil
}

// SuggestName is GenerateName with a fixed fallback: it always returns a
// usable name, plus the error that forced the fallback, if any.
func (c *Client) SuggestName(ctx context.Context, source string, opts *podcast.Options) (string, error) {
	name, err := c.GenerateName(ctx, source, opts)
	if err != nil {
		c.log.Warn(logFmtNameFallback, FallbackName, err)

		return FallbackName, err
	}

	return name, nil
}

// ParseName strips quotes, keeps at most five words and falls back to
// DefaultName when nothing is left.
func ParseName(text string) string {
	cleaned := strings.NewReplacer(`"`, "", "'", "").Replace(strings.TrimSpace(text))

	words := strings.Fields(cleaned)
	if len(words) > maxNameWords {
		words = words[:maxNameWords]
	}

	if len(words) == 0 {
		return DefaultName
	}

	return strings.Join(words, " ")
}

func (c *Client) config(req core.ScriptRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.settings.Temperature)),
		MaxOutputTokens: int32(c.settings.MaxTokens),
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	return config
}

func journalExcerpt(source string) string {
	excerpt := truncateRunes(source, journalSourceLimit)
	if excerpt == source {
		return source
	}

	return excerpt + truncatedSuffix
}

type discardObserver struct{}

func (discardObserver) Request(core.LogKind, string) string { return "" }
func (discardObserver) Response(string, string)             {}
func (discardObserver) Failure(string, string)              {}
