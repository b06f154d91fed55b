// Package runlog keeps a SQLite history of batch runs for operator
// visibility. Recording is best-effort and never affects run results.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the run history database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Run is one recorded batch run.
type Run struct {
	ID          int64
	StartedAt   string
	DurationSec int
	Found       int
	Enriched    int
	Errors      int
	StoreTotal  int
}

// RecordRun inserts a run record.
func (db *DB) RecordRun(r Run) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (started_at, duration_sec, found, enriched, errors, store_total)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.DurationSec, r.Found, r.Enriched, r.Errors, r.StoreTotal,
	)
	return err
}

// LastRun returns the most recent run, or nil if none exists.
func (db *DB) LastRun() (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, duration_sec, found, enriched, errors, store_total
		FROM runs ORDER BY id DESC LIMIT 1`,
	)

	var r Run
	err := row.Scan(&r.ID, &r.StartedAt, &r.DurationSec, &r.Found, &r.Enriched, &r.Errors, &r.StoreTotal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Stats contains aggregate run statistics.
type Stats struct {
	TotalRuns     int
	TotalEnriched int
	TotalErrors   int
}

// GetStats returns aggregate statistics over all recorded runs.
func (db *DB) GetStats() (*Stats, error) {
	row := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(enriched), 0), COALESCE(SUM(errors), 0) FROM runs`,
	)

	var s Stats
	if err := row.Scan(&s.TotalRuns, &s.TotalEnriched, &s.TotalErrors); err != nil {
		return nil, err
	}
	return &s, nil
}
