package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/book-expert/podcast-audio-service/internal/config"
	"github.com/book-expert/podcast-audio-service/internal/journal"
)

const (
	msgFmtEvent       = "%d %s %s %-6s %-7s %s\n"
	msgNoEvents       = "No journal events"
	errFmtNoJournal   = "no journal at %s: %w"
	errFmtJournalRead = "failed to read journal %s: %w"
	summaryRunes      = 80
)

var errJournalBothModes = errors.New("cannot specify both --journal and --journal-entry")

// inspectsJournal reports whether the flags ask for a journal dump.
func (f appFlags) inspectsJournal() bool {
	return f.journal > 0 || f.journalEntry != ""
}

// dumpJournal prints persisted journal events from the configured database.
// --journal-entry prints one entry's events in full; --journal prints a
// one-line summary of the newest events.
func dumpJournal(ctx context.Context, flags appFlags, stdout io.Writer) error {
	cfg, err := config.LoadFile(flags.config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return printJournal(ctx, cfg.Journal.Path, flags, stdout)
}

func printJournal(ctx context.Context, path string, flags appFlags, stdout io.Writer) error {
	_, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf(errFmtNoJournal, path, statErr)
	}

	store, err := journal.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	var events []journal.Event

	full := flags.journalEntry != ""
	if full {
		events, err = store.EntryEvents(ctx, flags.journalEntry)
	} else {
		events, err = store.Recent(ctx, flags.journal)
	}

	if err != nil {
		return fmt.Errorf(errFmtJournalRead, path, err)
	}

	if len(events) == 0 {
		fmt.Fprintln(stdout, msgNoEvents)

		return nil
	}

	for _, event := range events {
		content := event.Content
		if !full {
			content = summarize(content)
		}

		fmt.Fprintf(stdout, msgFmtEvent, event.ID, event.CreatedAt.Format(time.RFC3339),
			event.EntryID, event.Kind, event.Status, content)
	}

	return nil
}

// summarize flattens content onto one line and caps its length.
func summarize(content string) string {
	line := strings.Join(strings.Fields(content), " ")

	runes := []rune(line)
	if len(runes) <= summaryRunes {
		return line
	}

	return string(runes[:summaryRunes]) + "..."
}
