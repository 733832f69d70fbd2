// main package for the podcast-audio-service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-audio-service/internal/config"
	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/gemini"
	"github.com/book-expert/podcast-audio-service/internal/journal"
	"github.com/book-expert/podcast-audio-service/internal/objectstore"
	"github.com/book-expert/podcast-audio-service/internal/pipeline"
	"github.com/book-expert/podcast-audio-service/internal/synthesis"
	"github.com/book-expert/podcast-audio-service/internal/worker"
)

const (
	flagEmbeddedDesc = "Run an in-process NATS server with JetStream"
	logFileName      = "podcast-service.log"
	bootstrapLogName = "podcast-service-bootstrap.log"
	logMsgListening  = "Podcast-Service successfully initialized. Listening for jobs on subject: %s"
)

var errMissingAPIKey = errors.New("gemini API key environment variable is empty")

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run(embedded bool) error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}
	defer bootstrapLog.Close()

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return err
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog, embedded)
}

// serve connects to NATS, wires the pipeline and runs the worker until ctx ends.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger, embedded bool) error {
	if cfg.APIKey() == "" {
		return fmt.Errorf("%w: %w: %s", core.ErrConfiguration, errMissingAPIKey, cfg.Synthesis.APIKeyEnv)
	}

	bus, err := connectBus(cfg.NATS, log, embedded)
	if err != nil {
		return err
	}
	defer bus.Close()

	store, err := objectstore.New(bus.jetstream, cfg.NATS.ObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	var sink journal.Sink

	if cfg.Journal.Enabled {
		journalStore, openErr := journal.OpenSQLite(ctx, cfg.Journal.Path)
		if openErr != nil {
			return fmt.Errorf("failed to open journal: %w", openErr)
		}
		defer journalStore.Close()

		sink = journalStore
	}

	api, err := gemini.NewClient(gemini.Config{
		BaseURL:           cfg.Synthesis.BaseURL,
		APIKey:            cfg.APIKey(),
		Timeout:           cfg.Synthesis.Timeout(),
		RequestsPerMinute: cfg.Synthesis.RequestsPerMinute,
	})
	if err != nil {
		return err
	}

	speech := synthesis.NewClient(api, cfg.Synthesis.Model)

	healthErr := speech.HealthCheck(ctx)
	if healthErr != nil {
		log.Warn("Speech endpoint health check failed: %v", healthErr)
	}

	producerSettings, orchestratorSettings := pipeline.SettingsFromConfig(cfg.Pipeline)
	observer := journal.NewBounded(log, sink, cfg.Journal.Retention)
	orchestrator := synthesis.NewOrchestrator(speech, observer, log, orchestratorSettings)
	producer := pipeline.NewProducer(orchestrator, log, producerSettings)

	podcastWorker := worker.NewNatsWorker(bus.conn,
		worker.Subjects{Request: cfg.NATS.RequestSubject, Progress: cfg.NATS.ProgressSubject},
		store, producer, log, 0)

	log.System(logMsgListening, cfg.NATS.RequestSubject)

	return podcastWorker.Run(ctx)
}

func main() {
	embedded := flag.Bool("embedded", false, flagEmbeddedDesc)
	flag.Parse()

	err := run(*embedded)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
