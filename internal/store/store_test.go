package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbench/bitbench/internal/bench"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(id string, failAt int) *bench.Result {
	res := &bench.Result{
		RunID: id,
		Scenario: &bench.Scenario{
			Name:        "uart-receive",
			Description: "test",
			Protocol:    bench.ProtocolUART,
			Direction:   bench.DirectionReceive,
			Repeats:     3,
			Seed:        1701,
			Params:      map[string]int64{"BAUD_RATE": 750_000},
		},
		StartedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 3; i++ {
		rep := bench.Repetition{Index: i, Seed: 1701 + int64(i), Words: []uint64{uint64(0xA0 + i)}, SimTimeNs: 13944}
		if i == failAt {
			rep.Err = errors.New("FRAMING: uart-receive: read_data mismatch")
		}
		res.Reps = append(res.Reps, rep)
		if rep.Err != nil {
			break
		}
	}
	return res
}

func TestWriteAndReadRun(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	res := sampleResult("run-1", -1)
	require.NoError(t, s.WriteResult(ctx, res))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "uart-receive", run.Scenario)
	assert.Equal(t, bench.ProtocolUART, run.Protocol)
	assert.Equal(t, int64(1701), run.Seed)
	assert.True(t, run.Passed)
	assert.Equal(t, map[string]int64{"BAUD_RATE": 750_000}, run.Params)
	assert.Equal(t, res.StartedAt, run.StartedAt)

	reps, err := s.ListRepetitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, reps, 3)
	assert.Equal(t, []uint64{0xA1}, reps[1].Words)
	assert.Equal(t, "pass", reps[1].Status)
	assert.Equal(t, uint64(13944), reps[1].SimTimeNs)
}

func TestWriteResult_FailedRepetition(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.WriteResult(ctx, sampleResult("run-2", 1)))

	run, err := s.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, run.Passed)

	reps, err := s.ListRepetitions(ctx, "run-2")
	require.NoError(t, err)
	// Execution stops at the failing repetition.
	require.Len(t, reps, 2)
	assert.Equal(t, "fail", reps[1].Status)
	assert.Contains(t, reps[1].Error, "FRAMING")
}

func TestWriteResult_Idempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	res := sampleResult("run-3", -1)
	require.NoError(t, s.WriteResult(ctx, res))
	require.NoError(t, s.WriteResult(ctx, res))

	runs, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestListRuns_FilterAndOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := sampleResult("run-a", -1)
	second := sampleResult("run-b", -1)
	second.StartedAt = first.StartedAt.Add(time.Minute)
	other := sampleResult("run-c", -1)
	other.Scenario = &bench.Scenario{
		Name: "i2s-receive", Description: "test",
		Protocol: bench.ProtocolI2S, Direction: bench.DirectionReceive, Repeats: 1,
	}
	other.StartedAt = first.StartedAt.Add(2 * time.Minute)

	for _, r := range []*bench.Result{first, second, other} {
		require.NoError(t, s.WriteResult(ctx, r))
	}

	runs, err := s.ListRuns(ctx, "uart-receive", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)

	limited, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-c", limited[0].ID)
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarshalParams_Canonical(t *testing.T) {
	a, err := marshalParams(map[string]int64{"B": 2, "A": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"A":1,"B":2}`, a)

	empty, err := marshalParams(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)

	back, err := unmarshalParams(a)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 2}, back)
}

func TestMarshalWords_RoundTrip(t *testing.T) {
	text := marshalWords([]uint64{0, 165, 16777215})
	assert.Equal(t, "[0,165,16777215]", text)
	words, err := unmarshalWords(text)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 165, 16777215}, words)

	none, err := unmarshalWords("[]")
	require.NoError(t, err)
	assert.Nil(t, none)
}
