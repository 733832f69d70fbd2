// Package worker_test tests the NATS worker for the podcast audio service.
package worker_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/podcast-audio-service/internal/audio"
	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/journal"
	"github.com/book-expert/podcast-audio-service/internal/objectstore"
	"github.com/book-expert/podcast-audio-service/internal/pipeline"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
	"github.com/book-expert/podcast-audio-service/internal/synthesis"
	"github.com/book-expert/podcast-audio-service/internal/worker"
)

const (
	requestSubject  = "podcast.test.requested"
	progressSubject = "podcast.test.progress"
	transcriptKey   = "transcript.txt"
	sampleScript    = "**[ALEX]** Welcome to the show. [ACTION: Jingle]\n---\n**[SARAH]** Thanks for having me."
)

var errMockUpload = errors.New("mock upload error")

// mockObjectStore is an in-memory core.ObjectStore.
type mockObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failWrite  bool
	failSuffix string
	deleted    []string
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: map[string][]byte{transcriptKey: []byte(sampleScript)}}
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}

	return data, nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrite || (m.failSuffix != "" && strings.HasSuffix(key, m.failSuffix)) {
		return errMockUpload
	}

	m.objects[key] = data

	return nil
}

func (m *mockObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	m.deleted = append(m.deleted, key)

	return nil
}

func (m *mockObjectStore) get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.objects[key]
}

// mockProducer reports two progress steps and returns a fixed episode.
type mockProducer struct {
	mu       sync.Mutex
	text     string
	opts     podcast.Options
	episode  pipeline.Episode
	err      error
	produced int
}

func (m *mockProducer) Produce(
	_ context.Context,
	text string,
	opts *podcast.Options,
	onProgress synthesis.ProgressFunc,
) (pipeline.Episode, error) {
	m.mu.Lock()
	m.text = text
	m.opts = *opts
	m.produced++
	m.mu.Unlock()

	onProgress(1, 2)
	onProgress(2, 2)

	return m.episode, m.err
}

func startNats(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

// runWorker starts the worker and stops it when the test ends.
func runWorker(t *testing.T, natsConnection *nats.Conn, store core.ObjectStore, producer worker.EpisodeProducer) {
	t.Helper()

	workerInstance := worker.NewNatsWorker(natsConnection,
		worker.Subjects{Request: requestSubject, Progress: progressSubject},
		store, producer, newTestLogger(t), 0)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errChan, "worker.Run should not error on graceful shutdown")
	})
}

func newRequest(key string) *worker.PodcastAudioRequestedEvent {
	return &worker.PodcastAudioRequestedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "user-1",
			TenantID:   "tenant-1",
		},
		TranscriptKey: key,
	}
}

// request retries until the worker's subscription is live.
func request(t *testing.T, natsConnection *nats.Conn, event *worker.PodcastAudioRequestedEvent) worker.PodcastAudioCreatedEvent {
	t.Helper()

	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	replies := make(chan *nats.Msg, 1)

	require.Eventually(t, func() bool {
		reply, requestErr := natsConnection.Request(requestSubject, eventData, 10*time.Second)
		if requestErr != nil {
			return false
		}

		replies <- reply

		return true
	}, 15*time.Second, 50*time.Millisecond)

	var replyEvent worker.PodcastAudioCreatedEvent

	require.NoError(t, json.Unmarshal((<-replies).Data, &replyEvent))

	return replyEvent
}

func TestWorker_Success(t *testing.T) {
	t.Parallel()

	natsConnection := startNats(t)
	store := newMockObjectStore()
	producer := &mockProducer{episode: pipeline.Episode{
		WAV: []byte("RIFF-episode"), Chunks: 2, SuccessCount: 2, Duration: 1500 * time.Millisecond,
	}}

	progress, err := natsConnection.SubscribeSync(progressSubject)
	require.NoError(t, err)
	require.NoError(t, natsConnection.Flush())

	runWorker(t, natsConnection, store, producer)

	event := newRequest(transcriptKey)
	event.ReaderExport = true

	reply := request(t, natsConnection, event)

	assert.Empty(t, reply.ErrorKind)
	assert.Equal(t, event.Header.WorkflowID, reply.Header.WorkflowID)
	assert.Equal(t, "tenant-1", reply.Header.TenantID)
	assert.NotEqual(t, event.Header.EventID, reply.Header.EventID)
	assert.Equal(t, 2, reply.ChunkCount)
	assert.Equal(t, 2, reply.SuccessCount)
	assert.InDelta(t, 1.5, reply.DurationSeconds, 1e-9)

	assert.Equal(t, sampleScript, producer.text)
	assert.Equal(t, podcast.Default(), producer.opts)
	assert.Equal(t, []byte("RIFF-episode"), store.get(reply.AudioKey))
	assert.Equal(t, "ALEX: Welcome to the show. [ACTION: Jingle]\nSARAH: Thanks for having me.\n",
		string(store.get(reply.TranscriptExportKey)))

	for want := 1; want <= 2; want++ {
		msg, nextErr := progress.NextMsg(5 * time.Second)
		require.NoError(t, nextErr)

		var update worker.PodcastAudioProgressEvent

		require.NoError(t, json.Unmarshal(msg.Data, &update))
		assert.Equal(t, core.Progress{Current: want, Total: 2}, update.Progress)
		assert.Equal(t, event.Header.WorkflowID, update.Header.WorkflowID)
	}
}

func TestWorker_ReportsFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		key          string
		producerErr  error
		failUpload   bool
		expectedKind string
		produced     int
	}{
		{name: "missing key", key: "", expectedKind: core.KindValidation},
		{name: "unknown transcript", key: "missing.txt", expectedKind: core.KindInternal},
		{
			name: "complete failure", key: transcriptKey,
			producerErr: core.ErrCompleteSynthesisFailure, expectedKind: core.KindCompleteSynthesisFailure, produced: 1,
		},
		{name: "upload failure", key: transcriptKey, failUpload: true, expectedKind: core.KindInternal, produced: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			natsConnection := startNats(t)
			store := newMockObjectStore()
			store.failWrite = tc.failUpload
			producer := &mockProducer{
				episode: pipeline.Episode{WAV: []byte("RIFF"), Chunks: 3},
				err:     tc.producerErr,
			}

			runWorker(t, natsConnection, store, producer)

			reply := request(t, natsConnection, newRequest(tc.key))

			assert.Equal(t, tc.expectedKind, reply.ErrorKind)
			assert.NotEmpty(t, reply.Error)
			assert.Empty(t, reply.AudioKey)
			assert.Empty(t, reply.TranscriptExportKey)
			assert.Equal(t, tc.produced, producer.produced)
		})
	}
}

func TestWorker_ExportUploadFailureRemovesAudio(t *testing.T) {
	t.Parallel()

	natsConnection := startNats(t)
	store := newMockObjectStore()
	store.failSuffix = ".txt"
	producer := &mockProducer{episode: pipeline.Episode{WAV: []byte("RIFF"), Chunks: 1, SuccessCount: 1}}

	runWorker(t, natsConnection, store, producer)

	reply := request(t, natsConnection, newRequest(transcriptKey))

	assert.Equal(t, core.KindInternal, reply.ErrorKind)
	assert.Contains(t, reply.Error, "transcript export")
	assert.Empty(t, reply.AudioKey)

	store.mu.Lock()
	defer store.mu.Unlock()

	require.Len(t, store.deleted, 1)
	assert.True(t, strings.HasSuffix(store.deleted[0], ".wav"))
	assert.Len(t, store.objects, 1)
	assert.Contains(t, store.objects, transcriptKey)
}

func TestWorker_EndToEndWithObjectStore(t *testing.T) {
	t.Parallel()

	natsConnection := startNats(t)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "PODCAST_TEST")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, transcriptKey, []byte(sampleScript)))

	log := newTestLogger(t)
	synthesizer := synthesizerFunc(func(_ context.Context, req core.SpeechRequest) ([]byte, error) {
		out := make([]byte, 0, 4)
		out = binary.LittleEndian.AppendUint16(out, uint16(len(req.Text)))

		return binary.LittleEndian.AppendUint16(out, 1), nil
	})
	orchestrator := synthesis.NewOrchestrator(synthesizer, nil, log, synthesis.Settings{BackoffUnit: time.Millisecond})
	producer := pipeline.NewProducer(orchestrator, log, pipeline.Settings{})

	runWorker(t, natsConnection, store, producer)

	reply := request(t, natsConnection, newRequest(transcriptKey))
	require.Empty(t, reply.Error)

	assert.Equal(t, 1, reply.ChunkCount)
	assert.Equal(t, 1, reply.SuccessCount)

	wav, err := store.Download(ctx, reply.AudioKey)
	require.NoError(t, err)
	assert.Len(t, wav, audio.HeaderSize+2*(12000+2+12000))
	assert.Equal(t, "RIFF", string(wav[:4]))

	export, err := store.Download(ctx, reply.TranscriptExportKey)
	require.NoError(t, err)
	assert.Contains(t, string(export), "[ACTION: Jingle]")
}

func TestWorker_JournalRetentionIsBoundedAcrossJobs(t *testing.T) {
	t.Parallel()

	natsConnection := startNats(t)
	store := newMockObjectStore()
	log := newTestLogger(t)

	observer := journal.NewBounded(log, nil, 1)
	synthesizer := synthesizerFunc(func(context.Context, core.SpeechRequest) ([]byte, error) {
		return []byte{0x10, 0x00}, nil
	})
	orchestrator := synthesis.NewOrchestrator(synthesizer, observer, log, synthesis.Settings{BackoffUnit: time.Millisecond})

	runWorker(t, natsConnection, store, pipeline.NewProducer(orchestrator, log, pipeline.Settings{}))

	for job := 1; job <= 2; job++ {
		reply := request(t, natsConnection, newRequest(transcriptKey))
		require.Empty(t, reply.Error, "job %d", job)
	}

	entries := observer.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusSuccess, entries[0].Status)
	assert.Equal(t, core.LogKindAudio, entries[0].Kind)
}

type synthesizerFunc func(ctx context.Context, req core.SpeechRequest) ([]byte, error)

func (f synthesizerFunc) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	return f(ctx, req)
}
