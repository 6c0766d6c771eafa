// Package sqlite persists the transition journal in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	names TEXT NOT NULL,
	applied INTEGER NOT NULL,
	degraded INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id, id);
`

// Journal implements ports.Journal on SQLite.
type Journal struct {
	db *sql.DB
}

var _ ports.Journal = (*Journal)(nil)

// Open opens or creates the database at path and prepares the schema.
func Open(path string) (*Journal, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts rec.
func (j *Journal) Record(ctx context.Context, rec domain.Record) error {
	names, err := json.Marshal(nonNil(rec.Names))
	if err != nil {
		return fmt.Errorf("failed to marshal names: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO transitions (session_id, names, applied, degraded, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, string(names), rec.Applied, rec.Degraded, rec.Error,
		unixNano(rec.StartedAt), unixNano(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// History returns up to limit records of sessionID, newest first.
func (j *Journal) History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error) {
	query := `SELECT session_id, names, applied, degraded, error, started_at, finished_at
		FROM transitions WHERE session_id = ? ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var (
			rec               domain.Record
			names             string
			started, finished int64
		)
		if err := rows.Scan(&rec.SessionID, &names, &rec.Applied, &rec.Degraded, &rec.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(names), &rec.Names); err != nil {
			return nil, fmt.Errorf("failed to unmarshal names: %w", err)
		}
		if len(rec.Names) == 0 {
			rec.Names = nil
		}
		rec.StartedAt = fromUnixNano(started)
		rec.FinishedAt = fromUnixNano(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarizes the journal of one session.
type Stats struct {
	Transitions int
	Degraded    int
	Failed      int
	Applied     int
}

// Stats aggregates the history of sessionID.
func (j *Journal) Stats(ctx context.Context, sessionID string) (Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(degraded), 0), COALESCE(SUM(error != ''), 0), COALESCE(SUM(applied), 0)
		 FROM transitions WHERE session_id = ?`, sessionID,
	).Scan(&s.Transitions, &s.Degraded, &s.Failed, &s.Applied)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate history: %w", err)
	}
	return s, nil
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
