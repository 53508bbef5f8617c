package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
	"github.com/Ruben-VandeVelde/aesop/internal/store"
)

// seedRun writes a proved run with a small trace into a fresh database.
func seedRun(t *testing.T, dbPath, runID string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	goal, err := ir.ParseSequent("a |- a")
	require.NoError(t, err)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.BeginRun(ctx, runID, goal, started))

	events := []search.Event{
		{Kind: search.EventGoalAdded, Goal: 1},
		{Kind: search.EventGoalExpanded, Iteration: 1, Goal: 1},
		{Kind: search.EventRuleTried, Iteration: 1, Goal: 1, Rule: "assumption", Outcome: "proven"},
		{Kind: search.EventProofFound, Iteration: 1, Goal: 1},
	}
	for i, e := range events {
		require.NoError(t, st.AppendEvent(ctx, runID, int64(i+1), e))
	}

	require.NoError(t, st.WriteCertificate(ctx, runID, goal, ir.HypCert{Index: 0}))
	stats := search.Stats{Goals: 1, RuleApplications: 0, Iterations: 1}
	require.NoError(t, st.FinishRun(ctx, runID, store.StatusProved, "", stats, started.Add(time.Second)))
}

func executeTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := executeTrace(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceListRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, dbPath, "run-1")

	out, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, store.StatusProved)
	assert.Contains(t, out, "a |- a")
}

func TestTraceListEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	st.Close()

	out, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded runs")
}

func TestTraceShowRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, dbPath, "run-1")

	out, err := executeTrace(t, "text", "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-1: proved")
	assert.Contains(t, out, "goal_expanded")
	assert.Contains(t, out, "assumption")
	assert.Contains(t, out, "certificate:")
}

func TestTraceKindFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, dbPath, "run-1")

	out, err := executeTrace(t, "json", "--db", dbPath, "--run", "run-1", "--kind", string(search.EventRuleTried))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	events, ok := data["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, string(search.EventRuleTried), event["kind"])
	assert.Equal(t, "assumption", event["rule"])
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, dbPath, "run-1")

	_, err := executeTrace(t, "text", "--db", dbPath, "--run", "run-999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceJSONListing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, dbPath, "run-1")

	out, err := executeTrace(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	list, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	run := list[0].(map[string]any)
	assert.Equal(t, "run-1", run["id"])
	assert.Equal(t, store.StatusProved, run["status"])
}
