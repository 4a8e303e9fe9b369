package store

import (
	"context"
	"fmt"
)

// WriteRun appends a run and its effects in one transaction and returns
// the run with its Seq assigned. Seq is one past the current maximum.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same run ID
// twice leaves the first row and returns the stored seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	errsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	if existing > 0 {
		// Release the only connection before reading.
		tx.Rollback()
		stored, err := s.GetRun(ctx, run.ID)
		if err != nil {
			return Run{}, fmt.Errorf("write run: %w", err)
		}
		return stored, nil
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq)
	if err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, pass, stopped, errors, trace_hash, trace_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		seq,
		run.Scenario,
		boolToInt(run.Pass),
		boolToInt(run.Stopped),
		errsJSON,
		run.TraceHash,
		string(run.TraceJSON),
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for _, e := range run.Effects {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO effects (run_id, seq, kind, effect)
			VALUES (?, ?, ?, ?)
		`, run.ID, e.Seq, e.Kind, string(e.JSON))
		if err != nil {
			return Run{}, fmt.Errorf("write run: effect %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}

	run.Seq = seq
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
