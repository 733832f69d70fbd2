// Package pipeline runs the staged transcript-to-audio production: clean,
// segment, atomize, pack, synthesize and assemble.
package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-audio-service/internal/audio"
	"github.com/book-expert/podcast-audio-service/internal/config"
	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
	"github.com/book-expert/podcast-audio-service/internal/synthesis"
	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

const (
	logFmtPlanned  = "Transcript planned: %d segment(s), %d atom(s), %d chunk(s)"
	logFmtProduced = "Episode produced: %d/%d chunk(s), %s of audio, %d bytes"
	errFmtTooShort = "%w: cleaned transcript has %d characters, need at least %d"
)

// Settings holds the chunking and assembly constants.
type Settings struct {
	MaxChunkLength      int
	MinTranscriptLength int
	Silence             time.Duration
	SampleRate          int
}

// SettingsFromConfig splits the pipeline section into producer and
// orchestrator settings.
func SettingsFromConfig(cfg config.PipelineConfig) (Settings, synthesis.Settings) {
	return Settings{
			MaxChunkLength:      cfg.MaxChunkLength,
			MinTranscriptLength: cfg.MinTranscriptLength,
			Silence:             cfg.Silence(),
			SampleRate:          cfg.SampleRate,
		}, synthesis.Settings{
			MaxAttempts:    cfg.MaxAttempts,
			BackoffUnit:    cfg.BackoffUnit(),
			MinChunkLength: cfg.MinChunkLength,
			SampleRate:     cfg.SampleRate,
		}
}

// Plan is the synthesis-free part of a run.
type Plan struct {
	Cleaned  string
	Segments []transcript.Segment
	Atoms    []transcript.Atom
	Chunks   []string
}

// Episode is a finished audio artifact and its run statistics.
type Episode struct {
	WAV          []byte
	Chunks       int
	SuccessCount int
	Samples      int
	Duration     time.Duration
	Attempts     []synthesis.Attempt
}

// Producer turns transcripts into episodes.
type Producer struct {
	orchestrator *synthesis.Orchestrator
	log          *logger.Logger
	settings     Settings
}

// NewProducer fills zero settings with the config defaults.
func NewProducer(orchestrator *synthesis.Orchestrator, log *logger.Logger, settings Settings) *Producer {
	if settings.MaxChunkLength <= 0 {
		settings.MaxChunkLength = config.DefaultMaxChunkLength
	}

	if settings.MinTranscriptLength <= 0 {
		settings.MinTranscriptLength = config.DefaultMinTranscriptLength
	}

	if settings.Silence <= 0 {
		settings.Silence = audio.DefaultSilence
	}

	if settings.SampleRate <= 0 {
		settings.SampleRate = audio.DefaultSampleRate
	}

	return &Producer{orchestrator: orchestrator, log: log, settings: settings}
}

// Plan cleans and chunks text. A cleaned transcript shorter than the minimum
// fails with core.ErrValidation.
func (p *Producer) Plan(text string, opts *podcast.Options) (Plan, error) {
	cleaned := transcript.Clean(text)

	length := utf8.RuneCountInString(cleaned)
	if length < p.settings.MinTranscriptLength {
		return Plan{}, fmt.Errorf(errFmtTooShort, core.ErrValidation, length, p.settings.MinTranscriptLength)
	}

	segments := transcript.SegmentTranscript(cleaned, opts.Host.Tag())
	atoms := transcript.Atomize(segments)
	chunks := transcript.Pack(atoms, p.settings.MaxChunkLength)

	p.log.Info(logFmtPlanned, len(segments), len(atoms), len(chunks))

	return Plan{Cleaned: cleaned, Segments: segments, Atoms: atoms, Chunks: chunks}, nil
}

// Produce runs the full pipeline. Options are validated before any stage runs.
func (p *Producer) Produce(
	ctx context.Context,
	text string,
	opts *podcast.Options,
	onProgress synthesis.ProgressFunc,
) (Episode, error) {
	validateErr := opts.Validate()
	if validateErr != nil {
		return Episode{}, validateErr
	}

	plan, planErr := p.Plan(text, opts)
	if planErr != nil {
		return Episode{}, planErr
	}

	result, synthErr := p.orchestrator.Synthesize(ctx, plan.Chunks, opts, onProgress)
	if synthErr != nil {
		return Episode{Chunks: len(plan.Chunks), Attempts: result.Attempts}, synthErr
	}

	assembled, assembleErr := audio.Assemble(result.Buffers, audio.Silence(p.settings.Silence, p.settings.SampleRate))
	if assembleErr != nil {
		return Episode{}, fmt.Errorf("failed to assemble episode audio: %w", assembleErr)
	}

	episode := Episode{
		WAV:          audio.EncodeWAV(assembled),
		Chunks:       len(plan.Chunks),
		SuccessCount: result.SuccessCount,
		Samples:      len(assembled.Samples),
		Duration:     assembled.Duration(),
		Attempts:     result.Attempts,
	}

	p.log.Info(logFmtProduced, episode.SuccessCount, episode.Chunks, episode.Duration, len(episode.WAV))

	return episode, nil
}
