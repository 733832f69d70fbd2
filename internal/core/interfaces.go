// Package core defines the core business logic and interfaces for the podcast audio service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SpeakerVoice binds a speaker display name to a prebuilt voice identifier.
type SpeakerVoice struct {
	Speaker string
	Voice   string
}

// Directives carries the performance hints sent along with a synthesis request.
type Directives struct {
	Tone         string
	Pacing       string
	Language     string
	LanguageCode string
}

// SpeechRequest is one synthesis call for one formatted chunk.
type SpeechRequest struct {
	Text       string
	Voices     []SpeakerVoice
	Directives Directives
}

// SpeechSynthesizer turns formatted dialogue into an encoded audio payload.
// A nil payload with a nil error means the service answered without audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// ScriptRequest describes one text-generation call.
type ScriptRequest struct {
	System string
	Prompt string
}

// TextGenerator is the text-model collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, req ScriptRequest) (string, error)
	Stream(ctx context.Context, req ScriptRequest, onFragment func(string) error) error
}

// LogKind groups journal entries by the collaborator they describe.
type LogKind string

// Journal entry kinds.
const (
	LogKindName   LogKind = "NAME"
	LogKindScript LogKind = "SCRIPT"
	LogKindAudio  LogKind = "AUDIO"
)

// Observer records external calls. Request returns the correlation id that
// links the eventual Response or Failure to it.
type Observer interface {
	Request(kind LogKind, prompt string) string
	Response(id, content string)
	Failure(id, content string)
}

// Progress is the (current, total) tuple reported once per chunk. Current is 1-based.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}
