package core

import (
	"errors"
)

// Run-level and attempt-level error kinds.
var (
	// ErrConfiguration indicates a missing credential or an invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation indicates the cleaned transcript is too short to synthesize.
	ErrValidation = errors.New("transcript validation failed")
	// ErrTransientSynthesis marks a single failed synthesis attempt.
	ErrTransientSynthesis = errors.New("synthesis attempt failed")
	// ErrCompleteSynthesisFailure indicates no chunk produced audio.
	ErrCompleteSynthesisFailure = errors.New(
		"audio generation failed completely, try a shorter script or a different tone",
	)
	// ErrStreamingGeneration indicates the text model failed mid-stream.
	ErrStreamingGeneration = errors.New("script generation stream failed")
	// ErrCanceled indicates the caller abandoned the run.
	ErrCanceled = errors.New("run canceled")
)

// Error kind labels used in reply events.
const (
	KindNone                     = ""
	KindConfiguration            = "configuration"
	KindValidation               = "validation"
	KindTransientSynthesis       = "transient_synthesis"
	KindCompleteSynthesisFailure = "complete_synthesis_failure"
	KindStreamingGeneration      = "streaming_generation"
	KindCanceled                 = "canceled"
	KindInternal                 = "internal"
)

// KindOf classifies err into one of the Kind labels. Cancellation wins over
// the stage error it interrupted.
func KindOf(err error) string {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrCompleteSynthesisFailure):
		return KindCompleteSynthesisFailure
	case errors.Is(err, ErrStreamingGeneration):
		return KindStreamingGeneration
	case errors.Is(err, ErrTransientSynthesis):
		return KindTransientSynthesis
	default:
		return KindInternal
	}
}
