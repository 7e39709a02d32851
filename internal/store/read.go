package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID        string
	Scenario  string
	Protocol  string
	Direction string
	Seed      int64
	Repeats   int
	Params    map[string]int64
	StartedAt time.Time
	Passed    bool
}

// RepetitionRecord is one row of the repetitions table.
type RepetitionRecord struct {
	RunID     string
	Index     int
	Seed      int64
	Words     []uint64
	SimTimeNs uint64
	Status    string
	Error     string
}

const runColumns = "id, scenario, protocol, direction, seed, repeats, params, started_at, passed"

// ListRuns returns runs newest first, optionally filtered by scenario
// name. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]RunSummary, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	if scenario != "" {
		query += " WHERE scenario = ?"
		args = append(args, scenario)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if err != nil {
		return RunSummary{}, fmt.Errorf("store: get run %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return RunSummary{}, fmt.Errorf("store: get run %s: %w", id, err)
		}
		return RunSummary{}, fmt.Errorf("store: get run %s: %w", id, ErrNotFound)
	}
	run, err := scanRun(rows)
	if err != nil {
		return RunSummary{}, fmt.Errorf("store: get run %s: %w", id, err)
	}
	return run, nil
}

// ListRepetitions returns a run's repetitions in execution order.
func (s *Store) ListRepetitions(ctx context.Context, runID string) ([]RepetitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, seed, words, sim_time_ns, status, error
		FROM repetitions WHERE run_id = ? ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: list repetitions %s: %w", runID, err)
	}
	defer rows.Close()

	var reps []RepetitionRecord
	for rows.Next() {
		var rec RepetitionRecord
		var words string
		var simTime int64
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Seed, &words, &simTime, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("store: list repetitions %s: %w", runID, err)
		}
		if rec.Words, err = unmarshalWords(words); err != nil {
			return nil, fmt.Errorf("store: list repetitions %s: %w", runID, err)
		}
		rec.SimTimeNs = uint64(simTime)
		reps = append(reps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list repetitions %s: %w", runID, err)
	}
	return reps, nil
}

func scanRun(rows *sql.Rows) (RunSummary, error) {
	var run RunSummary
	var params, startedAt string
	var passed int
	if err := rows.Scan(&run.ID, &run.Scenario, &run.Protocol, &run.Direction,
		&run.Seed, &run.Repeats, &params, &startedAt, &passed); err != nil {
		return RunSummary{}, err
	}
	var err error
	if run.Params, err = unmarshalParams(params); err != nil {
		return RunSummary{}, err
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return RunSummary{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.Passed = passed == 1
	return run, nil
}
