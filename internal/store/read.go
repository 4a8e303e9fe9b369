package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, scenario, pass, stopped, errors, trace_hash, trace_json`

// GetRun returns a run with its effects.
// Returns an error wrapping ErrRunNotFound if the ID is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}

	run.Effects, err = s.RunEffects(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestRun returns the most recent run of a scenario, or of any scenario
// when scenario is empty.
func (s *Store) LatestRun(ctx context.Context, scenario string) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}

	run.Effects, err = s.RunEffects(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns runs without their effects, oldest first.
// An empty scenario lists every run.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	return s.queryRuns(ctx, query, args...)
}

// FindRunsByHash returns every run whose trace hashed to hash, oldest first.
func (s *Store) FindRunsByHash(ctx context.Context, hash string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE trace_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, hash)
}

// RunEffects returns the effects of a run in trace order.
//
// Returns an empty slice (not nil) if the run yielded nothing.
func (s *Store) RunEffects(ctx context.Context, runID string) ([]Effect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, effect
		FROM effects
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer rows.Close()

	effects := []Effect{}
	for rows.Next() {
		var e Effect
		var data string
		if err := rows.Scan(&e.Seq, &e.Kind, &data); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		e.JSON = []byte(data)
		effects = append(effects, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effects: %w", err)
	}
	return effects, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		pass      int
		stopped   int
		errsJSON  string
		traceJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Scenario,
		&pass,
		&stopped,
		&errsJSON,
		&run.TraceHash,
		&traceJSON,
	)
	if err != nil {
		return Run{}, err
	}

	run.Pass = pass == 1
	run.Stopped = stopped == 1
	run.TraceJSON = []byte(traceJSON)
	run.Errors, err = unmarshalErrors(errsJSON)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
