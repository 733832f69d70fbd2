// Package config provides the configuration structure for the podcast-audio-service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/podcast-audio-service/internal/core"
)

// Pipeline defaults.
const (
	DefaultMaxChunkLength      = 600
	DefaultMaxAttempts         = 3
	DefaultBackoffUnitMillis   = 1000
	DefaultMinTranscriptLength = 10
	DefaultMinChunkLength      = 2
	DefaultSilenceMillis       = 500
	DefaultSampleRate          = 24000
)

// Service defaults.
const (
	DefaultAPIKeyEnv         = "GEMINI_API_KEY"
	DefaultSynthesisModel    = "gemini-2.5-flash-preview-tts"
	DefaultGenerationModel   = "gemini-2.5-flash"
	DefaultTimeoutSeconds    = 120
	DefaultTemperature       = 0.8
	DefaultMaxOutputTokens   = 8192
	DefaultRequestSubject    = "podcast.audio.requested"
	DefaultProgressSubject   = "podcast.audio.progress"
	DefaultObjectStoreBucket = "PODCAST_FILES"
	DefaultJournalPath       = "podcast-journal.db"
	DefaultJournalRetention  = 256
	defaultStoreDirName      = "podcast-nats"
)

const errFmtInvalid = "%w: %s must be positive, got %d"

var errMissingSubject = errors.New("nats request subject is required")

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL               string `toml:"url"`
	RequestSubject    string `toml:"request_subject"`
	ProgressSubject   string `toml:"progress_subject"`
	ObjectStoreBucket string `toml:"object_store_bucket"`
	StoreDir          string `toml:"store_dir"`
}

// SynthesisConfig configures the speech model.
type SynthesisConfig struct {
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	APIKeyEnv         string `toml:"api_key_env"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// GenerationConfig configures the text model.
type GenerationConfig struct {
	Model           string  `toml:"model"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

// PipelineConfig holds the chunking, retry and audio constants.
type PipelineConfig struct {
	MaxChunkLength      int `toml:"max_chunk_length"`
	MaxAttempts         int `toml:"max_attempts"`
	BackoffUnitMillis   int `toml:"backoff_unit_ms"`
	MinTranscriptLength int `toml:"min_transcript_length"`
	MinChunkLength      int `toml:"min_chunk_length"`
	SilenceMillis       int `toml:"silence_ms"`
	SampleRate          int `toml:"sample_rate"`
}

// JournalConfig controls persistence of the call journal. Retention caps the
// entries the service keeps in memory.
type JournalConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Retention int    `toml:"retention"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Synthesis  SynthesisConfig  `toml:"synthesis"`
	Generation GenerationConfig `toml:"generation"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Journal    JournalConfig    `toml:"journal"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the service configuration through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// LoadFile decodes a local TOML file. An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read configuration %s: %w", path, readErr)
		}

		decodeErr := toml.Unmarshal(data, &cfg)
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: failed to decode %s: %w", core.ErrConfiguration, path, decodeErr)
		}
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// ApplyDefaults fills every zero value.
func (c *Config) ApplyDefaults() {
	setString(&c.NATS.RequestSubject, DefaultRequestSubject)
	setString(&c.NATS.ProgressSubject, DefaultProgressSubject)
	setString(&c.NATS.ObjectStoreBucket, DefaultObjectStoreBucket)
	setString(&c.NATS.StoreDir, filepath.Join(os.TempDir(), defaultStoreDirName))

	setString(&c.Synthesis.Model, DefaultSynthesisModel)
	setString(&c.Synthesis.APIKeyEnv, DefaultAPIKeyEnv)
	setInt(&c.Synthesis.TimeoutSeconds, DefaultTimeoutSeconds)

	setString(&c.Generation.Model, DefaultGenerationModel)
	setInt(&c.Generation.MaxOutputTokens, DefaultMaxOutputTokens)

	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = DefaultTemperature
	}

	setInt(&c.Pipeline.MaxChunkLength, DefaultMaxChunkLength)
	setInt(&c.Pipeline.MaxAttempts, DefaultMaxAttempts)
	setInt(&c.Pipeline.BackoffUnitMillis, DefaultBackoffUnitMillis)
	setInt(&c.Pipeline.MinTranscriptLength, DefaultMinTranscriptLength)
	setInt(&c.Pipeline.MinChunkLength, DefaultMinChunkLength)
	setInt(&c.Pipeline.SilenceMillis, DefaultSilenceMillis)
	setInt(&c.Pipeline.SampleRate, DefaultSampleRate)

	setString(&c.Journal.Path, DefaultJournalPath)
	setInt(&c.Journal.Retention, DefaultJournalRetention)
	setString(&c.Paths.BaseLogsDir, os.TempDir())
}

// Validate rejects negative numeric settings and a blank request subject.
// Failures wrap core.ErrConfiguration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NATS.RequestSubject) == "" {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, errMissingSubject)
	}

	positives := []struct {
		name  string
		value int
	}{
		{"pipeline.max_chunk_length", c.Pipeline.MaxChunkLength},
		{"pipeline.max_attempts", c.Pipeline.MaxAttempts},
		{"pipeline.backoff_unit_ms", c.Pipeline.BackoffUnitMillis},
		{"pipeline.min_transcript_length", c.Pipeline.MinTranscriptLength},
		{"pipeline.min_chunk_length", c.Pipeline.MinChunkLength},
		{"pipeline.silence_ms", c.Pipeline.SilenceMillis},
		{"pipeline.sample_rate", c.Pipeline.SampleRate},
		{"synthesis.timeout_seconds", c.Synthesis.TimeoutSeconds},
		{"generation.max_output_tokens", c.Generation.MaxOutputTokens},
		{"journal.retention", c.Journal.Retention},
	}

	for _, setting := range positives {
		if setting.value <= 0 {
			return fmt.Errorf(errFmtInvalid, core.ErrConfiguration, setting.name, setting.value)
		}
	}

	if c.Synthesis.RequestsPerMinute < 0 {
		return fmt.Errorf(errFmtInvalid, core.ErrConfiguration, "synthesis.requests_per_minute", c.Synthesis.RequestsPerMinute)
	}

	return nil
}

// APIKey reads the Gemini key from the configured environment variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Synthesis.APIKeyEnv))
}

// Timeout is the per-request HTTP timeout.
func (s SynthesisConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// BackoffUnit is the linear backoff step.
func (p PipelineConfig) BackoffUnit() time.Duration {
	return time.Duration(p.BackoffUnitMillis) * time.Millisecond
}

// Silence is the padding placed before and after the episode.
func (p PipelineConfig) Silence() time.Duration {
	return time.Duration(p.SilenceMillis) * time.Millisecond
}

func setString(target *string, fallback string) {
	if strings.TrimSpace(*target) == "" {
		*target = fallback
	}
}

func setInt(target *int, fallback int) {
	if *target == 0 {
		*target = fallback
	}
}
