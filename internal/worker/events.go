package worker

import (
	"github.com/book-expert/events"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/book-expert/podcast-audio-service/internal/podcast"
)

// PodcastAudioRequestedEvent asks for one episode to be produced from a
// transcript stored under TranscriptKey.
type PodcastAudioRequestedEvent struct {
	Header        events.EventHeader `json:"header"`
	TranscriptKey string             `json:"transcriptKey"`
	Options       *podcast.Options   `json:"options,omitempty"`
	ReaderExport  bool               `json:"readerExport"`
}

// PodcastAudioCreatedEvent is the reply to a request. ErrorKind is empty on
// success and one of the core.Kind labels otherwise.
type PodcastAudioCreatedEvent struct {
	Header              events.EventHeader `json:"header"`
	AudioKey            string             `json:"audioKey,omitempty"`
	TranscriptExportKey string             `json:"transcriptExportKey,omitempty"`
	ChunkCount          int                `json:"chunkCount"`
	SuccessCount        int                `json:"successCount"`
	DurationSeconds     float64            `json:"durationSeconds"`
	ErrorKind           string             `json:"errorKind,omitempty"`
	Error               string             `json:"error,omitempty"`
}

// PodcastAudioProgressEvent is published once per chunk while a job runs.
type PodcastAudioProgressEvent struct {
	Header events.EventHeader `json:"header"`
	core.Progress
}
