package history

import (
	"os"
	"testing"
	"time"

	"github.com/jpequegn/polybench/internal/measurement"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "polybench_history_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	_ = tmpFile.Close()
	path := tmpFile.Name()

	store, err := Open(path)
	if err != nil {
		_ = os.Remove(path)
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Init(); err != nil {
		_ = store.Close()
		_ = os.Remove(path)
		t.Fatalf("failed to init store: %v", err)
	}

	return store, func() {
		_ = store.Close()
		_ = os.Remove(path)
	}
}

func sampleMeasurement(nanosPerOp float64) measurement.Measurement {
	return measurement.FromAggregate(1000, uint64(nanosPerOp*1000))
}

func TestStore_Init_CreatesTable(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var count int
	err := store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'runs'",
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("expected the runs table to exist, got count %d", count)
	}
}

func TestStore_RecordAndLatest(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	m := sampleMeasurement(100)
	runID, err := store.Record("hash", "keccak", "go", m, time.Now())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a non-empty run ID")
	}

	latest, err := store.Latest("hash", "keccak", "go")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a record, got nil")
	}
	if latest.RunID != runID {
		t.Errorf("RunID = %q, want %q", latest.RunID, runID)
	}
	if latest.Measurement.Iterations != m.Iterations {
		t.Errorf("Iterations = %d, want %d", latest.Measurement.Iterations, m.Iterations)
	}
}

func TestStore_Latest_NoRowsReturnsNilNoError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	latest, err := store.Latest("absent", "absent", "go")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil for an unknown key, got %+v", latest)
	}
}

func TestStore_History_OrdersMostRecentFirstAndRespectsLimit(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.Record("hash", "keccak", "rust", sampleMeasurement(float64(100+i)), base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	recs, err := store.History("hash", "keccak", "rust", 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(recs) = %d, want 3", len(recs))
	}
	for i := 0; i < len(recs)-1; i++ {
		if recs[i].RecordedAt.Before(recs[i+1].RecordedAt) {
			t.Errorf("History not ordered most-recent-first at index %d", i)
		}
	}
}

func TestStore_ByRunID_ReturnsFullSuiteSnapshot(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now()
	runID, err := store.Record("hash", "keccak", "go", sampleMeasurement(100), now)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	// A second benchmark recorded under the same run ID, simulating a
	// whole-suite snapshot stamped with one timestamp.
	if _, err := store.db.Exec(
		`INSERT INTO runs (run_id, suite, benchmark, language, measurement, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, "hash", "blake3", "go", `{"Iterations":1,"TotalNanos":1,"NanosPerOp":1,"OpsPerSec":1}`, now,
	); err != nil {
		t.Fatalf("seeding second row: %v", err)
	}

	recs, err := store.ByRunID(runID)
	if err != nil {
		t.Fatalf("ByRunID: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
}

func TestStore_Cleanup_RemovesOldRecordsOnly(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	old := time.Now().AddDate(0, 0, -30)
	recent := time.Now()
	if _, err := store.Record("hash", "keccak", "go", sampleMeasurement(100), old); err != nil {
		t.Fatalf("Record old: %v", err)
	}
	if _, err := store.Record("hash", "keccak", "go", sampleMeasurement(100), recent); err != nil {
		t.Fatalf("Record recent: %v", err)
	}

	if err := store.Cleanup(7); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	recs, err := store.History("hash", "keccak", "go", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1 after cleanup", len(recs))
	}
}

func TestStore_Cleanup_RejectsNonPositiveRetention(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.Cleanup(0); err == nil {
		t.Fatal("expected an error for zero retention days")
	}
}
