package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bitbench/bitbench/internal/bench"
)

// WriteResult persists one scenario run and all of its executed
// repetitions in a single transaction. Writing the same run ID again is a
// no-op, so a run can be re-persisted safely after a partial failure.
func (s *Store) WriteResult(ctx context.Context, res *bench.Result) error {
	params, err := marshalParams(res.Scenario.Params)
	if err != nil {
		return fmt.Errorf("store: write run %s: %w", res.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: write run %s: %w", res.RunID, err)
	}
	defer tx.Rollback()

	passed := 0
	if res.Passed() {
		passed = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, protocol, direction, seed, repeats, params, started_at, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		res.Scenario.Name,
		res.Scenario.Protocol,
		res.Scenario.Direction,
		res.Scenario.Seed,
		res.Scenario.Repeats,
		params,
		res.StartedAt.UTC().Format(time.RFC3339Nano),
		passed,
	)
	if err != nil {
		return fmt.Errorf("store: write run %s: %w", res.RunID, err)
	}

	for i := range res.Reps {
		rep := &res.Reps[i]
		status, errText := "pass", ""
		if rep.Err != nil {
			status = "fail"
			errText = rep.Err.Error()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO repetitions (run_id, idx, seed, words, sim_time_ns, status, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, idx) DO NOTHING
		`,
			res.RunID,
			rep.Index,
			rep.Seed,
			marshalWords(rep.Words),
			int64(rep.SimTimeNs),
			status,
			errText,
		)
		if err != nil {
			return fmt.Errorf("store: write run %s repetition %d: %w", res.RunID, rep.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: write run %s: %w", res.RunID, err)
	}
	return nil
}
