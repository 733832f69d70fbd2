package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/book-expert/podcast-audio-service/internal/core"
)

const (
	driverName   = "sqlite"
	dsnFormat    = "file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	defaultLimit = 100
	dirPerm      = 0o755
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    content TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_events_entry ON journal_events(entry_id, id);
`

// Event is one persisted state change of an entry.
type Event struct {
	ID        int64
	EntryID   string
	Kind      core.LogKind
	Status    Status
	Content   string
	CreatedAt time.Time
}

// SQLiteStore is an append-only Sink backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		mkdirErr := os.MkdirAll(dir, dirPerm)
		if mkdirErr != nil {
			return nil, fmt.Errorf("create journal dir: %w", mkdirErr)
		}
	}

	db, err := sql.Open(driverName, fmt.Sprintf(dsnFormat, path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pingErr := db.PingContext(ctx)
	if pingErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", pingErr)
	}

	_, schemaErr := db.ExecContext(ctx, schema)
	if schemaErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create journal schema: %w", schemaErr)
	}

	return &SQLiteStore{db: db}, nil
}

// Append writes one event.
func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_events(entry_id, kind, status, content, created_at) VALUES(?, ?, ?, ?, ?)`,
		event.EntryID, string(event.Kind), string(event.Status), event.Content,
		event.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append journal event: %w", err)
	}

	return nil
}

// EntryEvents lists the events of one entry in write order.
func (s *SQLiteStore) EntryEvents(ctx context.Context, entryID string) ([]Event, error) {
	return s.query(ctx,
		`SELECT id, entry_id, kind, status, content, created_at FROM journal_events
		 WHERE entry_id = ? ORDER BY id ASC`, entryID)
}

// Recent lists up to limit of the newest events, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	return s.query(ctx,
		`SELECT id, entry_id, kind, status, content, created_at FROM (
		     SELECT * FROM journal_events ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, limit)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal events: %w", err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		var (
			event   Event
			kind    string
			status  string
			content sql.NullString
			created string
		)

		scanErr := rows.Scan(&event.ID, &event.EntryID, &kind, &status, &content, &created)
		if scanErr != nil {
			return nil, fmt.Errorf("scan journal event: %w", scanErr)
		}

		event.Kind = core.LogKind(kind)
		event.Status = Status(status)
		event.Content = content.String

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr == nil {
			event.CreatedAt = ts
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
