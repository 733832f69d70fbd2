// podcast-cli produces podcast episodes locally: it can write a script from
// source text, suggest an episode name, and turn a transcript into a WAV file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"

	"github.com/book-expert/podcast-audio-service/internal/config"
	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/fileutil"
	"github.com/book-expert/podcast-audio-service/internal/gemini"
	"github.com/book-expert/podcast-audio-service/internal/generation"
	"github.com/book-expert/podcast-audio-service/internal/journal"
	"github.com/book-expert/podcast-audio-service/internal/pipeline"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
	"github.com/book-expert/podcast-audio-service/internal/synthesis"
	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

// Flag names.
const (
	flagTranscript = "transcript"
	flagGenerate   = "generate"
	flagName       = "name"
	flagOutput     = "output"
	flagEpisode    = "episode"
	flagConfig     = "config"
	flagReader     = "reader"
	flagHealth     = "health"
	flagJournal    = "journal"
	flagEntry      = "journal-entry"
)

// Flag descriptions.
const (
	flagTranscriptDesc = "Transcript file to synthesize"
	flagGenerateDesc   = "Source text file: stream a script from it, then synthesize the script"
	flagNameDesc       = "Suggest an episode name for the --generate or --transcript text and exit"
	flagOutputDesc     = "Output file path (.wav); defaults to the episode name"
	flagEpisodeDesc    = "Episode options file (TOML)"
	flagConfigDesc     = "Service configuration file (TOML)"
	flagReaderDesc     = "Write the transcript export in reader mode"
	flagHealthDesc     = "Check the speech endpoint and exit"
	flagJournalDesc    = "Print the newest N persisted journal events and exit"
	flagEntryDesc      = "Print every persisted event of one journal entry and exit"
)

// Messages.
const (
	errMsgNoInput     = "one of --transcript or --generate must be provided"
	errMsgBothInputs  = "cannot specify both --transcript and --generate"
	errFmtReadInput   = "failed to read %s: %w"
	msgHealthy        = "Speech service is healthy"
	msgFmtNotHealthy  = "Speech service is not healthy: %v\n"
	msgFmtProgress    = "Synthesizing chunk %d/%d\n"
	msgFmtSummary     = "Wrote %s (%s, %s, %d/%d chunks)\nWrote %s\n"
	msgFmtName        = "%s\n"
	logFmtStarted     = "podcast-cli started: %s"
	logFmtJournalOpen = "Journal persisted to %s"
	logFmtJournal     = "Journal recorded %d call(s)"
	logFileName       = "podcast-cli.log"
)

var (
	errNoInput    = errors.New(errMsgNoInput)
	errBothInputs = errors.New(errMsgBothInputs)
	errNotText    = errors.New("input must be a .txt or .md file")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	transcript string
	generate   string
	output     string
	episode    string
	config     string
	name       bool
	reader     bool
	health     bool

	journal      int
	journalEntry string
}

// app bundles the collaborators one invocation needs.
type app struct {
	log      *logger.Logger
	opts     podcast.Options
	journal  *journal.Journal
	speech   *synthesis.Client
	text     *generation.Client
	producer *pipeline.Producer
	stdout   io.Writer
}

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application entry point, returning an error on failure.
func run(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	envErr := godotenv.Load()
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.inspectsJournal() {
		return dumpJournal(ctx, flags, os.Stdout)
	}

	application, cleanup, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case flags.health:
		return application.healthCheck(ctx)
	case flags.name:
		return application.suggestName(ctx, flags)
	default:
		return application.produce(ctx, flags)
	}
}

// parseFlags defines and parses command-line flags and checks that they
// describe exactly one action.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("podcast-cli", flag.ContinueOnError)
	flagSet.StringVar(&flags.transcript, flagTranscript, "", flagTranscriptDesc)
	flagSet.StringVar(&flags.generate, flagGenerate, "", flagGenerateDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.episode, flagEpisode, "", flagEpisodeDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flagSet.BoolVar(&flags.name, flagName, false, flagNameDesc)
	flagSet.BoolVar(&flags.reader, flagReader, false, flagReaderDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.IntVar(&flags.journal, flagJournal, 0, flagJournalDesc)
	flagSet.StringVar(&flags.journalEntry, flagEntry, "", flagEntryDesc)

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		return flags, parseErr
	}

	if flags.journal > 0 && flags.journalEntry != "" {
		return flags, errJournalBothModes
	}

	if flags.health || flags.inspectsJournal() {
		return flags, nil
	}

	if flags.transcript == "" && flags.generate == "" {
		flagSet.Usage()

		return flags, errNoInput
	}

	if flags.transcript != "" && flags.generate != "" {
		return flags, errBothInputs
	}

	return flags, nil
}

// setup loads configuration and episode options and builds every client.
func setup(ctx context.Context, flags appFlags) (*app, func(), error) {
	cfg, err := config.LoadFile(flags.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	closers := []func() error{log.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	application, err := buildApp(ctx, cfg, log, flags, &closers)
	if err != nil {
		log.Error("Setup failed: %v", err)
		cleanup()

		return nil, nil, err
	}

	log.Info(logFmtStarted, application.opts.Name)

	return application, cleanup, nil
}

func buildApp(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	flags appFlags,
	closers *[]func() error,
) (*app, error) {
	opts := podcast.Default()

	if flags.episode != "" {
		loaded, err := podcast.LoadOptions(flags.episode)
		if err != nil {
			return nil, err
		}

		opts = loaded
	}

	var sink journal.Sink

	if cfg.Journal.Enabled {
		store, err := journal.OpenSQLite(ctx, cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}

		*closers = append(*closers, store.Close)
		sink = store

		log.Info(logFmtJournalOpen, cfg.Journal.Path)
	}

	api, err := gemini.NewClient(gemini.Config{
		BaseURL:           cfg.Synthesis.BaseURL,
		APIKey:            cfg.APIKey(),
		Timeout:           cfg.Synthesis.Timeout(),
		RequestsPerMinute: cfg.Synthesis.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}

	observer := journal.NewBounded(log, sink, cfg.Journal.Retention)
	speech := synthesis.NewClient(api, cfg.Synthesis.Model)
	producerSettings, orchestratorSettings := pipeline.SettingsFromConfig(cfg.Pipeline)
	orchestrator := synthesis.NewOrchestrator(speech, observer, log, orchestratorSettings)

	return &app{
		log:     log,
		opts:    opts,
		journal: observer,
		speech:  speech,
		text: generation.NewClient(api, observer, log, generation.Settings{
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxOutputTokens,
		}),
		producer: pipeline.NewProducer(orchestrator, log, producerSettings),
		stdout:   os.Stdout,
	}, nil
}

// healthCheck checks the speech model endpoint and prints the result.
func (a *app) healthCheck(ctx context.Context) error {
	err := a.speech.HealthCheck(ctx)
	if err != nil {
		a.log.Error("Health check failed: %v", err)
		fmt.Fprintf(a.stdout, msgFmtNotHealthy, err)

		return err
	}

	fmt.Fprintln(a.stdout, msgHealthy)

	return nil
}

// suggestName prints a name for the input text. The fallback name is printed
// even when the model call fails.
func (a *app) suggestName(ctx context.Context, flags appFlags) error {
	source, err := readInput(flags)
	if err != nil {
		return err
	}

	name, err := a.text.SuggestName(ctx, source, &a.opts)
	fmt.Fprintf(a.stdout, msgFmtName, name)

	return err
}

// produce synthesizes a transcript, generating it first when --generate is set.
func (a *app) produce(ctx context.Context, flags appFlags) error {
	source, err := readInput(flags)
	if err != nil {
		return err
	}

	script := source

	if flags.generate != "" {
		script, err = a.text.StreamScript(ctx, source, &a.opts, func(fragment string) {
			fmt.Fprint(a.stdout, fragment)
		})
		fmt.Fprintln(a.stdout)

		if err != nil {
			return err
		}
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = fileutil.EpisodeFilename(a.opts.Name, fileutil.ExtWAV)
	}

	exportPath := fileutil.ExportPath(outputPath)

	exportErr := fileutil.WriteFile(exportPath,
		[]byte(transcript.Export(script, flags.reader, a.opts.Host.Name, a.opts.Guest.Name)))
	if exportErr != nil {
		return exportErr
	}

	episode, err := a.producer.Produce(ctx, script, &a.opts, func(current, total int) {
		fmt.Fprintf(a.stdout, msgFmtProgress, current, total)
	})
	if err != nil {
		return err
	}

	writeErr := fileutil.WriteFile(outputPath, episode.WAV)
	if writeErr != nil {
		return writeErr
	}

	a.log.Info(logFmtJournal, len(a.journal.Entries()))

	fmt.Fprintf(a.stdout, msgFmtSummary, outputPath,
		fileutil.FormatFileSize(len(episode.WAV)), fileutil.FormatDuration(episode.Duration),
		episode.SuccessCount, episode.Chunks, exportPath)

	return nil
}

func readInput(flags appFlags) (string, error) {
	path := flags.transcript
	if flags.generate != "" {
		path = flags.generate
	}

	if !fileutil.IsValidTextFile(path) {
		return "", fmt.Errorf("%w: %s", errNotText, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf(errFmtReadInput, path, err)
	}

	return string(data), nil
}
