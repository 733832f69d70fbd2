// Package worker provides a NATS worker that turns podcast transcripts into
// episode audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/fileutil"
	"github.com/book-expert/podcast-audio-service/internal/pipeline"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
	"github.com/book-expert/podcast-audio-service/internal/synthesis"
	"github.com/book-expert/podcast-audio-service/internal/transcript"
)

// DefaultJobTimeout bounds one job, including every retry and backoff wait.
const DefaultJobTimeout = 30 * time.Minute

const (
	logFmtJobStarted   = "Job %s started: transcript %s"
	logFmtJobFinished  = "Job %s finished: %d/%d chunk(s), audio %s (%s)"
	logFmtJobFailed    = "Job %s failed (%s): %v"
	logFmtBadEvent     = "Failed to parse event: %v"
	logFmtReplyFailed  = "Failed to publish reply event for workflow %s: %v"
	logFmtProgressFail = "Failed to publish progress for workflow %s: %v"
	logFmtRollback     = "Job %s: failed to remove orphaned audio %s: %v"
)

// ErrTranscriptKeyEmpty indicates that the request carried no transcript key.
var ErrTranscriptKeyEmpty = errors.New("transcript key cannot be empty")

// EpisodeProducer is the pipeline entry point used by the worker.
type EpisodeProducer interface {
	Produce(
		ctx context.Context,
		text string,
		opts *podcast.Options,
		onProgress synthesis.ProgressFunc,
	) (pipeline.Episode, error)
}

// Subjects names the NATS subjects the worker uses.
type Subjects struct {
	Request  string
	Progress string
}

// NatsWorker listens for episode jobs on a NATS subject and processes them
// one at a time.
type NatsWorker struct {
	natsConnection *nats.Conn
	subjects       Subjects
	store          core.ObjectStore
	producer       EpisodeProducer
	log            *logger.Logger
	jobTimeout     time.Duration
}

// NewNatsWorker creates a new instance of a NATS worker. A zero jobTimeout
// uses DefaultJobTimeout.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjects Subjects,
	store core.ObjectStore,
	producer EpisodeProducer,
	log *logger.Logger,
	jobTimeout time.Duration,
) *NatsWorker {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subjects:       subjects,
		store:          store,
		producer:       producer,
		log:            log,
		jobTimeout:     jobTimeout,
	}
}

// Run subscribes and blocks until ctx ends, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subjects.Request, func(msg *nats.Msg) {
		w.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subjects.Request, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(parent context.Context, msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(parent, w.jobTimeout)
	defer cancel()

	var event PodcastAudioRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error(logFmtBadEvent, err)

		return
	}

	reply := w.processJob(ctx, &event)

	replyErr := w.publishReplyEvent(msg, reply)
	if replyErr != nil {
		w.log.Error(logFmtReplyFailed, event.Header.WorkflowID, replyErr)
	}
}

// processJob downloads the transcript, produces the episode and uploads the
// audio and the transcript export. Failures are reported in the reply.
func (w *NatsWorker) processJob(ctx context.Context, event *PodcastAudioRequestedEvent) *PodcastAudioCreatedEvent {
	reply := &PodcastAudioCreatedEvent{Header: replyHeader(event.Header)}
	workflowID := event.Header.WorkflowID

	w.log.Info(logFmtJobStarted, workflowID, event.TranscriptKey)

	opts := podcast.Default()
	if event.Options != nil {
		opts = *event.Options
		opts.FillVoices()
	}

	episode, exportText, err := w.produce(ctx, event, &opts)

	reply.ChunkCount = episode.Chunks
	reply.SuccessCount = episode.SuccessCount

	if err != nil {
		return w.failed(reply, workflowID, err)
	}

	baseKey := uuid.NewString()
	reply.AudioKey = baseKey + fileutil.ExtWAV
	reply.TranscriptExportKey = baseKey + fileutil.ExtTXT
	reply.DurationSeconds = episode.Duration.Seconds()

	uploadErr := w.store.Upload(ctx, reply.AudioKey, episode.WAV)
	if uploadErr != nil {
		return w.failed(reply, workflowID, fmt.Errorf("failed to upload audio for key '%s': %w", reply.AudioKey, uploadErr))
	}

	exportErr := w.store.Upload(ctx, reply.TranscriptExportKey, []byte(exportText))
	if exportErr != nil {
		deleteErr := w.store.Delete(ctx, reply.AudioKey)
		if deleteErr != nil {
			w.log.Warn(logFmtRollback, workflowID, reply.AudioKey, deleteErr)
		}

		return w.failed(reply, workflowID,
			fmt.Errorf("failed to upload transcript export for key '%s': %w", reply.TranscriptExportKey, exportErr))
	}

	w.log.Info(logFmtJobFinished, workflowID, episode.SuccessCount, episode.Chunks,
		reply.AudioKey, fileutil.FormatFileSize(len(episode.WAV)))

	return reply
}

func (w *NatsWorker) produce(
	ctx context.Context,
	event *PodcastAudioRequestedEvent,
	opts *podcast.Options,
) (pipeline.Episode, string, error) {
	if event.TranscriptKey == "" {
		return pipeline.Episode{}, "", fmt.Errorf("%w: %w", core.ErrValidation, ErrTranscriptKeyEmpty)
	}

	text, err := w.store.Download(ctx, event.TranscriptKey)
	if err != nil {
		return pipeline.Episode{}, "", fmt.Errorf("failed to download transcript for key '%s': %w", event.TranscriptKey, err)
	}

	episode, err := w.producer.Produce(ctx, string(text), opts, func(current, total int) {
		w.publishProgress(event.Header, current, total)
	})
	if err != nil {
		return episode, "", err
	}

	export := transcript.Export(string(text), event.ReaderExport, opts.Host.Name, opts.Guest.Name)

	return episode, export, nil
}

func (w *NatsWorker) failed(reply *PodcastAudioCreatedEvent, workflowID string, err error) *PodcastAudioCreatedEvent {
	reply.AudioKey = ""
	reply.TranscriptExportKey = ""
	reply.ErrorKind = core.KindOf(err)
	reply.Error = err.Error()

	w.log.Error(logFmtJobFailed, workflowID, reply.ErrorKind, err)

	return reply
}

func (w *NatsWorker) publishProgress(header events.EventHeader, current, total int) {
	if w.subjects.Progress == "" {
		return
	}

	data, err := json.Marshal(PodcastAudioProgressEvent{
		Header:   replyHeader(header),
		Progress: core.Progress{Current: current, Total: total},
	})
	if err == nil {
		err = w.natsConnection.Publish(w.subjects.Progress, data)
	}

	if err != nil {
		w.log.Warn(logFmtProgressFail, header.WorkflowID, err)
	}
}

// publishReplyEvent marshals and responds with the PodcastAudioCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *PodcastAudioCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func replyHeader(request events.EventHeader) events.EventHeader {
	return events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: request.WorkflowID,
		EventID:    uuid.NewString(),
		UserID:     request.UserID,
		TenantID:   request.TenantID,
	}
}
