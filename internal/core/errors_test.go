package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/book-expert/podcast-audio-service/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: core.KindNone},
		{name: "configuration", err: fmt.Errorf("api key: %w", core.ErrConfiguration), want: core.KindConfiguration},
		{name: "validation", err: fmt.Errorf("length 5: %w", core.ErrValidation), want: core.KindValidation},
		{name: "complete failure", err: core.ErrCompleteSynthesisFailure, want: core.KindCompleteSynthesisFailure},
		{name: "streaming", err: fmt.Errorf("%w: eof", core.ErrStreamingGeneration), want: core.KindStreamingGeneration},
		{
			name: "canceled",
			err:  fmt.Errorf("%w: %w", core.ErrCanceled, context.Canceled),
			want: core.KindCanceled,
		},
		{
			name: "canceled stream",
			err:  fmt.Errorf("%w: %w: %w", core.ErrStreamingGeneration, core.ErrCanceled, context.Canceled),
			want: core.KindCanceled,
		},
		{name: "transient", err: core.ErrTransientSynthesis, want: core.KindTransientSynthesis},
		{name: "other", err: errors.New("boom"), want: core.KindInternal},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.want, core.KindOf(testCase.err))
		})
	}
}
