package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no record has the given ID.
var ErrNotFound = errors.New("observation not found")

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	id              TEXT PRIMARY KEY,
	source_file     TEXT NOT NULL,
	event_date      TEXT NOT NULL,
	asteroid_number TEXT NOT NULL,
	asteroid_name   TEXT NOT NULL,
	observer        TEXT NOT NULL,
	pos_neg         TEXT NOT NULL,
	coords          TEXT NOT NULL,
	latitude        REAL NOT NULL,
	longitude       REAL NOT NULL,
	record          TEXT NOT NULL,
	extracted_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_event ON observations(event_date, asteroid_number);
`

const insertObservation = `
INSERT INTO observations
	(id, source_file, event_date, asteroid_number, asteroid_name, observer, pos_neg, coords, latitude, longitude, record, extracted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

// Store persists observation records in a SQLite database. Records are
// keyed by their deterministic ID, so re-running a batch is idempotent.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls
	// and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Write inserts the records in one transaction. Records whose ID is already
// stored are left unchanged.
func (s *Store) Write(ctx context.Context, records []domain.ObservationRecord) error {
	if len(records) == 0 {
		return nil
	}
	extractedAt := domain.Now().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertObservation)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("serialize record %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.SourceFile, rec.EventDate, rec.AsteroidNumber, rec.AsteroidName,
			rec.Observer, rec.PosNeg, rec.Coords, rec.Latitude, rec.Longitude,
			string(payload), extractedAt,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get loads a stored record by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.ObservationRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM observations WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query record %s: %w", id, err)
	}
	var rec domain.ObservationRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

// ExtractedAt returns when the record was first stored.
func (s *Store) ExtractedAt(ctx context.Context, id string) (time.Time, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT extracted_at FROM observations WHERE id = ?`, id).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query record %s: %w", id, err)
	}
	return time.Parse(time.RFC3339, ts)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
