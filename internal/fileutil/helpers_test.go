package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/podcast-audio-service/internal/fileutil"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "new", "dir")

	require.NoError(t, fileutil.EnsureDir(path))
	require.NoError(t, fileutil.EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "episode.wav")

	require.NoError(t, fileutil.WriteFile(path, []byte("RIFF")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestEpisodeFilename(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "spaces", input: "Mind Matters", expected: "Mind_Matters.wav"},
		{name: "invalid characters", input: `What? A "Deep" Dive: Part 1/2`, expected: "What__A__Deep__Dive__Part_1_2.wav"},
		{name: "blank", input: "   ", expected: "episode.wav"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, fileutil.EpisodeFilename(tc.input, fileutil.ExtWAV))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c_d_e_f_g_h_i_j", fileutil.SanitizeFilename(`a<b>c:d"e/f\g|h?i*j`))
}

func TestExportPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/show/episode.txt", fileutil.ExportPath("/tmp/show/episode.wav"))
	assert.Equal(t, "episode.txt", fileutil.ExportPath("episode"))
}

func TestIsValidTextFile(t *testing.T) {
	t.Parallel()

	assert.True(t, fileutil.IsValidTextFile("script.txt"))
	assert.True(t, fileutil.IsValidTextFile("notes.MD"))
	assert.False(t, fileutil.IsValidTextFile("audio.wav"))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    time.Duration
		expected string
	}{
		{input: 45200 * time.Millisecond, expected: "45.2s"},
		{input: 5*time.Minute + 30500*time.Millisecond, expected: "5m 30.5s"},
		{input: time.Hour + 15*time.Minute, expected: "1h 15m"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, fileutil.FormatDuration(tc.input))
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "44 B", fileutil.FormatFileSize(44))
	assert.Equal(t, "47 KiB", fileutil.FormatFileSize(48044))
	assert.Equal(t, "0 B", fileutil.FormatFileSize(-1))
}
