package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sagatest/internal/canon"
	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/saga"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot creates a two-effect snapshot for scenario.
func createTestSnapshot(scenario string) canon.TraceSnapshot {
	return canon.TraceSnapshot{
		Scenario: scenario,
		Trace: []saga.Record{
			{Seq: 1, Effect: effect.NewTake("HAVE_BIRTHDAY")},
			{Seq: 2, Effect: effect.NewPut(map[string]any{"type": "CELEBRATED"})},
		},
		ReturnValue: 12,
		FinalState:  map[string]any{"age": 12},
	}
}

// createTestRun builds a run for scenario or fails the test.
func createTestRun(t *testing.T, scenario string, errs []string) Run {
	t.Helper()
	run, err := NewRun(createTestSnapshot(scenario), errs)
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	return run
}
