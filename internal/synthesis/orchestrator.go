package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/cenkalti/backoff/v5"

	"github.com/book-expert/podcast-audio-service/internal/audio"
	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

// Defaults for Settings.
const (
	DefaultMaxAttempts    = 3
	DefaultBackoffUnit    = time.Second
	DefaultMinChunkLength = 2
)

// Log formats.
const (
	logFmtChunkSkipped   = "Skipping chunk %d/%d: payload too short"
	logFmtChunkSucceeded = "Chunk %d/%d synthesized in %d attempt(s), %d samples"
	logFmtChunkDropped   = "Dropping chunk %d/%d after %d failed attempt(s): %v"
	logFmtRetry          = "Chunk %d/%d attempt failed, retrying in %s: %v"
	logFmtRunComplete    = "Synthesized %d of %d chunks"
	observerFmtRequest   = "(Chunk %d/%d)\n%s"
	observerFmtSuccess   = "(Chunk %d/%d) Success [%dKB]"
	observerFmtFailure   = "(Chunk %d/%d) Attempt %d Failed: %v"
)

var errEmptyPayload = errors.New("no audio payload returned")

// Settings bound the retry loop and decoding.
type Settings struct {
	MaxAttempts    int
	BackoffUnit    time.Duration
	MinChunkLength int
	SampleRate     int
}

// Outcome of one synthesis attempt.
type Outcome string

// Attempt outcomes.
const (
	OutcomeSuccess          Outcome = "success"
	OutcomeTransientFailure Outcome = "transient-failure"
)

// Attempt records one external call for one chunk.
type Attempt struct {
	ChunkIndex    int
	AttemptNumber int
	Outcome       Outcome
	Err           error
}

// Result is the ordered audio of every chunk that succeeded.
type Result struct {
	Buffers      []audio.Buffer
	SuccessCount int
	Attempts     []Attempt
}

// ProgressFunc receives the 1-based chunk index and the chunk count before a
// chunk's first attempt.
type ProgressFunc func(current, total int)

// Orchestrator submits chunks to a SpeechSynthesizer one at a time.
type Orchestrator struct {
	synthesizer core.SpeechSynthesizer
	observer    core.Observer
	log         *logger.Logger
	settings    Settings
}

// NewOrchestrator fills zero settings with defaults. observer may be nil.
func NewOrchestrator(
	synthesizer core.SpeechSynthesizer,
	observer core.Observer,
	log *logger.Logger,
	settings Settings,
) *Orchestrator {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}

	if settings.BackoffUnit <= 0 {
		settings.BackoffUnit = DefaultBackoffUnit
	}

	if settings.MinChunkLength <= 0 {
		settings.MinChunkLength = DefaultMinChunkLength
	}

	if settings.SampleRate <= 0 {
		settings.SampleRate = audio.DefaultSampleRate
	}

	if observer == nil {
		observer = discardObserver{}
	}

	return &Orchestrator{synthesizer: synthesizer, observer: observer, log: log, settings: settings}
}

// Synthesize processes chunks in order. A chunk that fails every attempt is
// dropped. The run fails with core.ErrCompleteSynthesisFailure when no chunk
// produced audio, and with core.ErrCanceled when ctx ends first.
func (o *Orchestrator) Synthesize(
	ctx context.Context,
	chunks []string,
	opts *podcast.Options,
	onProgress ProgressFunc,
) (Result, error) {
	var result Result

	base, requestErr := speechRequest(opts)
	if requestErr != nil {
		return result, requestErr
	}

	formatter := transcript.NewFormatter(opts.SpeakerNames()...)
	total := len(chunks)

	for index, chunk := range chunks {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return result, fmt.Errorf("%w: %w", core.ErrCanceled, ctxErr)
		}

		if onProgress != nil {
			onProgress(index+1, total)
		}

		if utf8.RuneCountInString(strings.TrimSpace(chunk)) < o.settings.MinChunkLength {
			o.log.Info(logFmtChunkSkipped, index+1, total)

			continue
		}

		req := base
		req.Text = formatter.Format(chunk)

		buffer, attempts, chunkErr := o.synthesizeChunk(ctx, index, total, req)
		result.Attempts = append(result.Attempts, attempts...)

		if chunkErr != nil {
			ctxErr := ctx.Err()
			if ctxErr != nil {
				return result, fmt.Errorf("%w: %w", core.ErrCanceled, ctxErr)
			}

			o.log.Warn(logFmtChunkDropped, index+1, total, len(attempts), chunkErr)

			continue
		}

		o.log.Info(logFmtChunkSucceeded, index+1, total, len(attempts), len(buffer.Samples))
		result.Buffers = append(result.Buffers, buffer)
		result.SuccessCount++
	}

	o.log.Info(logFmtRunComplete, result.SuccessCount, total)

	if result.SuccessCount == 0 {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return result, fmt.Errorf("%w: %w", core.ErrCanceled, ctxErr)
		}

		return result, core.ErrCompleteSynthesisFailure
	}

	return result, nil
}

// synthesizeChunk runs the bounded retry loop for one chunk. Decoding happens
// inside the attempt so an undecodable payload is retried like any failure.
func (o *Orchestrator) synthesizeChunk(
	ctx context.Context,
	index, total int,
	req core.SpeechRequest,
) (audio.Buffer, []Attempt, error) {
	var attempts []Attempt

	operation := func() (audio.Buffer, error) {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return audio.Buffer{}, backoff.Permanent(ctxErr)
		}

		number := len(attempts) + 1
		correlationID := o.observer.Request(core.LogKindAudio, fmt.Sprintf(observerFmtRequest, index+1, total, req.Text))

		buffer, err := o.attempt(ctx, req)
		if err != nil {
			attempts = append(attempts, Attempt{
				ChunkIndex: index, AttemptNumber: number, Outcome: OutcomeTransientFailure, Err: err,
			})
			o.observer.Failure(correlationID, fmt.Sprintf(observerFmtFailure, index+1, total, number, err))

			return audio.Buffer{}, fmt.Errorf("%w: %w", core.ErrTransientSynthesis, err)
		}

		attempts = append(attempts, Attempt{ChunkIndex: index, AttemptNumber: number, Outcome: OutcomeSuccess})
		o.observer.Response(correlationID, fmt.Sprintf(observerFmtSuccess, index+1, total, len(buffer.Samples)*2/1024))

		return buffer, nil
	}

	notify := func(err error, wait time.Duration) {
		o.log.Warn(logFmtRetry, index+1, total, wait, err)
	}

	buffer, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&linearBackOff{unit: o.settings.BackoffUnit}),
		backoff.WithMaxTries(uint(o.settings.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	return buffer, attempts, err
}

func (o *Orchestrator) attempt(ctx context.Context, req core.SpeechRequest) (audio.Buffer, error) {
	payload, err := o.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return audio.Buffer{}, err
	}

	if len(payload) == 0 {
		return audio.Buffer{}, errEmptyPayload
	}

	return audio.DecodePayload(payload, o.settings.SampleRate)
}

// speechRequest builds the voice mapping and directives shared by every chunk.
func speechRequest(opts *podcast.Options) (core.SpeechRequest, error) {
	languageCode, languageErr := opts.LanguageCode()
	if languageErr != nil {
		return core.SpeechRequest{}, fmt.Errorf("%w: %w", core.ErrConfiguration, languageErr)
	}

	return core.SpeechRequest{
		Voices: []core.SpeakerVoice{
			{Speaker: opts.Host.Name, Voice: opts.Host.Voice},
			{Speaker: opts.Guest.Name, Voice: opts.Guest.Voice},
		},
		Directives: core.Directives{
			Tone:         opts.Tone,
			Pacing:       opts.Pacing,
			Language:     opts.Language,
			LanguageCode: languageCode,
		},
	}, nil
}

// linearBackOff waits unit, 2*unit, 3*unit... between attempts.
type linearBackOff struct {
	unit    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++

	return b.unit * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

type discardObserver struct{}

func (discardObserver) Request(core.LogKind, string) string { return "" }
func (discardObserver) Response(string, string)             {}
func (discardObserver) Failure(string, string)              {}
