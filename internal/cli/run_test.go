package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbench/bitbench/internal/store"
)

func writeScenarioFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const passingScenario = `
name: uart-receive-cli
description: Two random bytes through the receiver.
protocol: uart
direction: receive
repeats: 2
seed: 99
`

const failingScenario = `
name: uart-starved
description: The watchdog must fail this repetition.
protocol: uart
direction: receive
max_time_ns: 1000
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunCommand_PassingScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "uart.yaml", passingScenario)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS uart-receive-cli (2 repetitions")
}

func TestRunCommand_FailingScenarioExitsOne(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "starved.yaml", failingScenario)

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL uart-starved: repetition 0")
	assert.Contains(t, out, "WATCHDOG")
}

func TestRunCommand_MissingScenarioExitsTwo(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_DirectoryAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "uart.yaml", passingScenario)

	out, err := execute(t, "run", "--repeats", "1", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 repetitions")
}

func TestRunCommand_PersistsToDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "uart.yaml", passingScenario)
	dbPath := filepath.Join(dir, "results.db")

	out, err := execute(t, "--format", "json", "run", "--db", dbPath, path)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	var reports []runReport
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &reports))
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.GetRun(context.Background(), reports[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, "uart-receive-cli", run.Scenario)
	assert.True(t, run.Passed)
}

func TestListAndReportCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "uart.yaml", passingScenario)
	dbPath := filepath.Join(dir, "results.db")

	out, err := execute(t, "--format", "json", "run", "--db", dbPath, path)
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	raw, _ := json.Marshal(resp.Data)
	var reports []runReport
	require.NoError(t, json.Unmarshal(raw, &reports))
	require.Len(t, reports, 1)
	runID := reports[0].RunID

	listOut, err := execute(t, "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, listOut, "PASS "+runID)

	reportOut, err := execute(t, "report", "--db", dbPath, runID)
	require.NoError(t, err)
	assert.Contains(t, reportOut, "scenario:  uart-receive-cli")
	assert.Contains(t, reportOut, "[0] pass")

	_, err = execute(t, "report", "--db", dbPath, "missing-id")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "good.yaml", passingScenario)

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "OK uart-receive-cli")
	assert.Contains(t, out, "1 scenarios valid")

	bad := writeScenarioFile(t, dir, "bad.yaml", `
name: broken
description: Direction does not exist.
protocol: uart
direction: sideways
`)
	_, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
