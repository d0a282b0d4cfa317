package events

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteLogger stores events in an SQLite database.
type SQLiteLogger struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// events table exists.
func OpenSQLite(path string) (*SQLiteLogger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database %s", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id                TEXT PRIMARY KEY,
			kind              TEXT NOT NULL,
			occurred_at       TIMESTAMP NOT NULL,
			regions           INTEGER NOT NULL DEFAULT 0,
			duration_ms       BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS events_occurred_at ON events (occurred_at);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "create events table in %s", path)
	}

	return &SQLiteLogger{db: db}, nil
}

// Log inserts e.
func (s *SQLiteLogger) Log(e Event) error {
	_, err := s.db.Exec(
		"INSERT INTO events (id, kind, occurred_at, regions, duration_ms) VALUES (?, ?, ?, ?, ?)",
		e.ID.String(), string(e.Kind), e.Time.UTC(), e.Regions, e.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.Wrapf(ErrWrite, "insert event %s: %v", e.ID, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteLogger) Recent(limit int) ([]Event, error) {
	rows, err := s.db.Query(
		"SELECT id, kind, occurred_at, regions, duration_ms FROM events ORDER BY occurred_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			id, kind   string
			occurredAt time.Time
			regions    int
			durationMs int64
		)
		if err := rows.Scan(&id, &kind, &occurredAt, &regions, &durationMs); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "event id %q", id)
		}
		out = append(out, Event{
			ID:       parsed,
			Time:     occurredAt,
			Kind:     Kind(kind),
			Regions:  regions,
			Duration: time.Duration(durationMs) * time.Millisecond,
		})
	}
	return out, errors.Wrap(rows.Err(), "iterate events")
}

// Close closes the database.
func (s *SQLiteLogger) Close() error {
	return s.db.Close()
}
