// Package history persists benchmark measurements across CLI
// invocations, keyed by (suite, benchmark, language). It backs the
// comparator's baseline lookups and the reporter's trend data — the
// supplement spec.md's distillation left implicit when it described
// cross-run comparison only in terms of two in-memory suites.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jpequegn/polybench/internal/measurement"
)

// Record is one persisted measurement: a single benchmark's result
// for one language, from one run of the CLI.
type Record struct {
	RunID       string
	Suite       string
	Benchmark   string
	Language    string
	Measurement measurement.Measurement
	RecordedAt  time.Time
}

// Store persists Records to a SQLite database. It's safe for
// concurrent use: database/sql pools connections internally, and
// every write here is a single statement or a short transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path. It
// does not create the schema; call Init for that.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Init creates the runs table and its indexes if they don't already
// exist.
func (s *Store) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		suite TEXT NOT NULL,
		benchmark TEXT NOT NULL,
		language TEXT NOT NULL,
		measurement TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_lookup
		ON runs(suite, benchmark, language, recorded_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("history: creating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record persists one measurement, generating and returning a fresh
// run ID. recordedAt is normally time.Now(), but is a parameter so
// callers in a single CLI invocation can stamp every benchmark in a
// suite with the same timestamp.
func (s *Store) Record(suite, benchmark, language string, m measurement.Measurement, recordedAt time.Time) (runID string, err error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("history: marshaling measurement: %w", err)
	}
	runID = uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, suite, benchmark, language, measurement, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, suite, benchmark, language, string(payload), recordedAt)
	if err != nil {
		return "", fmt.Errorf("history: inserting run: %w", err)
	}
	return runID, nil
}

// Latest returns the most recent record for (suite, benchmark,
// language), or nil if none exists — the comparator's baseline
// lookup (spec §8 scenario 6) when no --baseline run ID is given.
func (s *Store) Latest(suite, benchmark, language string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT run_id, measurement, recorded_at
		FROM runs
		WHERE suite = ? AND benchmark = ? AND language = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, suite, benchmark, language)

	var runID, payload string
	var recordedAt time.Time
	err := row.Scan(&runID, &payload, &recordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: querying latest run: %w", err)
	}
	return decodeRecord(suite, benchmark, language, runID, payload, recordedAt)
}

// ByRunID returns every record stamped with the given run ID, for an
// explicit --baseline=<run-id> comparison. Record gives each call its
// own run ID, so a run ID written by Record matches exactly one record.
func (s *Store) ByRunID(runID string) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT suite, benchmark, language, measurement, recorded_at
		FROM runs
		WHERE run_id = ?
		ORDER BY suite, benchmark, language
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: querying run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var suite, benchmark, language, payload string
		var recordedAt time.Time
		if err := rows.Scan(&suite, &benchmark, &language, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}
		rec, err := decodeRecord(suite, benchmark, language, runID, payload, recordedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating run %s: %w", runID, err)
	}
	return records, nil
}

// History returns up to limit records for (suite, benchmark,
// language), most recent first, feeding the reporter's trend data.
// limit <= 0 means unlimited.
func (s *Store) History(suite, benchmark, language string, limit int) ([]Record, error) {
	query := `
		SELECT run_id, measurement, recorded_at
		FROM runs
		WHERE suite = ? AND benchmark = ? AND language = ?
		ORDER BY recorded_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, suite, benchmark, language)
	if err != nil {
		return nil, fmt.Errorf("history: querying history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var runID, payload string
		var recordedAt time.Time
		if err := rows.Scan(&runID, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("history: scanning history row: %w", err)
		}
		rec, err := decodeRecord(suite, benchmark, language, runID, payload, recordedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating history: %w", err)
	}
	return records, nil
}

// Cleanup removes records older than retentionDays.
func (s *Store) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return fmt.Errorf("history: retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if _, err := s.db.Exec(`DELETE FROM runs WHERE recorded_at < ?`, cutoff); err != nil {
		return fmt.Errorf("history: cleanup: %w", err)
	}
	return nil
}

func decodeRecord(suite, benchmark, language, runID, payload string, recordedAt time.Time) (*Record, error) {
	var m measurement.Measurement
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("history: unmarshaling measurement for run %s: %w", runID, err)
	}
	return &Record{
		RunID:       runID,
		Suite:       suite,
		Benchmark:   benchmark,
		Language:    language,
		Measurement: m,
		RecordedAt:  recordedAt,
	}, nil
}
