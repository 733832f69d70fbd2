// Package gemini wraps the Gemini SDK client shared by script generation and
// speech synthesis, adding request rate limiting.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/book-expert/podcast-audio-service/internal/core"
)

// DefaultBaseURL is the public Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

const (
	errFmtCreateClient    = "failed to create gemini client: %w"
	errFmtGenerate        = "gemini generate content (%s): %w"
	errFmtStream          = "gemini stream content (%s): %w"
	errFmtHealthCheck     = "health check failed for model %s: %w"
	errFmtRateLimiterWait = "rate limiter wait: %w"
)

// ErrMissingAPIKey is returned by NewClient when no key is configured.
var ErrMissingAPIKey = errors.New("gemini API key is not set")

// Config holds the client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client sends generateContent requests through the SDK. It is safe for
// concurrent use.
type Client struct {
	sdk     *genai.Client
	limiter *rate.Limiter
}

// NewClient validates cfg and builds a client. A missing key wraps
// core.ErrConfiguration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, ErrMissingAPIKey)
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	// With an explicit key the Gemini API backend does no I/O here.
	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf(errFmtCreateClient, err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{sdk: sdk, limiter: limiter}, nil
}

// GenerateContent performs one non-streaming call.
func (c *Client) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	waitErr := c.limiter.Wait(ctx)
	if waitErr != nil {
		return nil, fmt.Errorf(errFmtRateLimiterWait, waitErr)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf(errFmtGenerate, model, err)
	}

	return resp, nil
}

// StreamGenerateContent performs a streaming call and hands every response to
// onResponse in arrival order. The first error from the stream or from
// onResponse ends it.
func (c *Client) StreamGenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	onResponse func(*genai.GenerateContentResponse) error,
) error {
	waitErr := c.limiter.Wait(ctx)
	if waitErr != nil {
		return fmt.Errorf(errFmtRateLimiterWait, waitErr)
	}

	for resp, err := range c.sdk.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return fmt.Errorf(errFmtStream, model, err)
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		callbackErr := onResponse(resp)
		if callbackErr != nil {
			return callbackErr
		}
	}

	return ctx.Err()
}

// HealthCheck verifies that the model answers for this key.
func (c *Client) HealthCheck(ctx context.Context, model string) error {
	_, err := c.sdk.Models.Get(ctx, model, nil)
	if err != nil {
		return fmt.Errorf(errFmtHealthCheck, model, err)
	}

	return nil
}

// UserText builds the contents of a single user turn holding text.
func UserText(text string) []*genai.Content {
	return genai.Text(text)
}

// Text concatenates the non-thought text parts of the first candidate.
func Text(resp *genai.GenerateContentResponse) string {
	parts := firstParts(resp)

	var builder strings.Builder

	for _, part := range parts {
		if part == nil || part.Thought {
			continue
		}

		builder.WriteString(part.Text)
	}

	return builder.String()
}

// InlineData returns the first inline payload of the first candidate, or nil.
func InlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	for _, part := range firstParts(resp) {
		if part != nil && part.InlineData != nil {
			return part.InlineData
		}
	}

	return nil
}

func firstParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	return resp.Candidates[0].Content.Parts
}
