// Package fileutil provides the file, path and display helpers shared by the
// podcast binaries.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Common path constants.
const (
	defaultDirPermissions  = 0o750
	defaultFilePermissions = 0o644
	invalidCharReplacement = "_"
	defaultEpisodeBase     = "episode"
)

// File extension constants.
const (
	ExtWAV = ".wav"
	ExtTXT = ".txt"
	extMD  = ".md"
)

// Time formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
)

const (
	errFmtFailedToCreateDir = "failed to create directory %s: %w"
	errFmtFailedToWrite     = "failed to write %s: %w"
)

var filenameReplacer = strings.NewReplacer(
	"<", invalidCharReplacement,
	">", invalidCharReplacement,
	":", invalidCharReplacement,
	"\"", invalidCharReplacement,
	"/", invalidCharReplacement,
	"\\", invalidCharReplacement,
	"|", invalidCharReplacement,
	"?", invalidCharReplacement,
	"*", invalidCharReplacement,
)

// EnsureDir creates path and its parents when missing.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// WriteFile writes data to path, creating the parent directory first.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		dirErr := EnsureDir(dir)
		if dirErr != nil {
			return dirErr
		}
	}

	writeErr := os.WriteFile(path, data, defaultFilePermissions)
	if writeErr != nil {
		return fmt.Errorf(errFmtFailedToWrite, path, writeErr)
	}

	return nil
}

// SanitizeFilename replaces characters that are invalid in most filesystems.
func SanitizeFilename(filename string) string {
	return filenameReplacer.Replace(filename)
}

// EpisodeFilename turns an episode name into a safe file name with ext.
// Spaces become underscores.
func EpisodeFilename(name, ext string) string {
	base := strings.Join(strings.Fields(SanitizeFilename(name)), "_")
	if base == "" {
		base = defaultEpisodeBase
	}

	return base + ext
}

// ExportPath returns the transcript export path that sits next to audioPath.
func ExportPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ExtTXT
}

// IsValidTextFile reports whether filename looks like a transcript file.
func IsValidTextFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtTXT, extMD:
		return true
	default:
		return false
	}
}

// FormatDuration formats a duration such as "45.2s", "5m 30.5s" or "1h 15m".
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()

	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}

// FormatFileSize formats a byte count in IEC units, e.g. "1.2 MiB".
func FormatFileSize(bytes int) string {
	return humanize.IBytes(uint64(max(bytes, 0)))
}
