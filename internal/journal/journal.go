// Package journal records every external call made during a run: the prompt
// sent, the eventual response or error, and when it happened.
package journal

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/podcast-audio-service/internal/core"
)

// Status is the lifecycle state of an entry.
type Status string

// Entry states.
const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

const (
	logFmtRequest      = "[%s] %s request"
	logFmtResponse     = "[%s] %s %s"
	logFmtUnknownEntry = "Journal entry %q not found, %s dropped"
	logFmtSinkFailed   = "Failed to persist journal event for %s: %v"
)

// Entry is one logged external call.
type Entry struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Kind      core.LogKind `json:"type"`
	Prompt    string       `json:"prompt"`
	Response  string       `json:"response,omitempty"`
	Status    Status       `json:"status"`
}

// Sink persists journal events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Journal is an append-only, mutex-guarded core.Observer. A bounded journal
// keeps only the newest entries in memory; the sink still sees every event.
type Journal struct {
	mu        sync.Mutex
	entries   []Entry
	index     map[string]int
	evicted   int
	retention int
	log       *logger.Logger
	sink      Sink
	clock     func() time.Time
}

// New creates a journal that keeps every entry. sink may be nil.
func New(log *logger.Logger, sink Sink) *Journal {
	return NewBounded(log, sink, 0)
}

// NewBounded creates a journal that keeps at most retention entries in
// memory. A retention of zero or less keeps everything.
func NewBounded(log *logger.Logger, sink Sink, retention int) *Journal {
	return &Journal{
		index:     make(map[string]int),
		retention: retention,
		log:       log,
		sink:      sink,
		clock:     time.Now,
	}
}

// Request opens a PENDING entry and returns its id.
func (j *Journal) Request(kind core.LogKind, prompt string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: j.clock().UTC(),
		Kind:      kind,
		Prompt:    prompt,
		Status:    StatusPending,
	}

	j.index[entry.ID] = j.evicted + len(j.entries)
	j.entries = append(j.entries, entry)
	j.evict()

	j.log.Info(logFmtRequest, entry.ID, kind)
	j.persist(entry, prompt)

	return entry.ID
}

// Response completes the entry with SUCCESS.
func (j *Journal) Response(id, content string) {
	j.complete(id, content, StatusSuccess)
}

// Failure completes the entry with ERROR.
func (j *Journal) Failure(id, content string) {
	j.complete(id, content, StatusError)
}

// Entries returns a copy of all entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return slices.Clone(j.entries)
}

// Reset drops every entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = nil
	j.index = make(map[string]int)
	j.evicted = 0
}

// evict drops the oldest entries beyond the retention limit.
func (j *Journal) evict() {
	if j.retention <= 0 {
		return
	}

	for len(j.entries) > j.retention {
		delete(j.index, j.entries[0].ID)

		j.entries[0] = Entry{}
		j.entries = j.entries[1:]
		j.evicted++
	}
}

func (j *Journal) complete(id, content string, status Status) {
	j.mu.Lock()
	defer j.mu.Unlock()

	position, ok := j.index[id]
	if !ok {
		j.log.Warn(logFmtUnknownEntry, id, status)

		return
	}

	entry := &j.entries[position-j.evicted]
	entry.Response = content
	entry.Status = status

	if status == StatusError {
		j.log.Error(logFmtResponse, id, entry.Kind, status)
	} else {
		j.log.Info(logFmtResponse, id, entry.Kind, status)
	}

	j.persist(*entry, content)
}

func (j *Journal) persist(entry Entry, content string) {
	if j.sink == nil {
		return
	}

	err := j.sink.Append(context.Background(), Event{
		EntryID:   entry.ID,
		Kind:      entry.Kind,
		Status:    entry.Status,
		Content:   content,
		CreatedAt: j.clock().UTC(),
	})
	if err != nil {
		j.log.Warn(logFmtSinkFailed, entry.ID, err)
	}
}
