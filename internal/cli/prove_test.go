package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-VandeVelde/aesop/internal/store"
	"github.com/Ruben-VandeVelde/aesop/internal/testutil"
)

func executeProve(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewProveCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestProveAssumption(t *testing.T) {
	out, err := executeProve(t, "a |- a")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ proved: a |- a")
	assert.Contains(t, out, "certificate: hyp(0)")
}

func TestProveConjunction(t *testing.T) {
	out, err := executeProve(t, "p, q |- p & q")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ proved")
	assert.Contains(t, out, "and_intro(hyp(0), hyp(1))")
}

func TestProveExistentialWitness(t *testing.T) {
	out, err := executeProve(t, "p(c) |- exists x . p(x)")
	require.NoError(t, err)
	assert.Contains(t, out, "exists_intro(c, hyp(0))")
}

func TestProveJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewProveCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"|- a -> a"})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["proved"])
	assert.Equal(t, "imp_intro(hyp(0))", data["certificate"])
}

func TestProveUnprovableExitCode(t *testing.T) {
	out, err := executeProve(t, "|- a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "unprovable")
	assert.Contains(t, out, "failed to prove")
}

func TestProveInvalidSequent(t *testing.T) {
	_, err := executeProve(t, "just some words")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProveMissingRulesetFile(t *testing.T) {
	_, err := executeProve(t, "a |- a", "--ruleset", "/nonexistent/rules.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProveWithRulesetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.cue")
	src := `ruleset: {
	name: "minimal"
	rules: {
		assumption: {phase: "safe", priority: 10}
	}
}`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out, err := executeProve(t, "a |- a", "--ruleset", path)
	require.NoError(t, err)
	assert.Contains(t, out, "hyp(0)")

	// The minimal set has no conjunction rule
	_, err = executeProve(t, "p, q |- p & q", "--ruleset", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProveWithOptionsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_goals: 1\n"), 0o644))

	// One goal is not enough for the conjunction's two subgoals
	out, err := executeProve(t, "p, q |- p & q", "--options", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "limit")
}

func TestProveRecordsTrace(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})

	clock := testutil.NewSteppedTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)
	opts := &ProveOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunIDs:      testutil.NewFixedRunIDGenerator(""),
		Now:         clock.Now,
	}
	require.NoError(t, runProve(opts, "p, q |- p & q", cmd))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.GetRun(ctx, "test-run-0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusProved, run.Status)
	assert.Equal(t, "p, q |- (p & q)", run.Goal)
	assert.Positive(t, run.Goals)
	assert.True(t, run.FinishedAt.After(run.StartedAt))

	events, err := st.Events(ctx, run.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	cert, err := st.Certificate(ctx, run.ID)
	require.NoError(t, err)
	assert.Contains(t, cert, "and_intro")
}

func TestProveRecordsUnprovableRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	opts := &ProveOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunIDs:      testutil.NewFixedRunIDGenerator(""),
	}
	err := runProve(opts, "|- a", cmd)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.GetRun(context.Background(), "test-run-0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusUnprovable, run.Status)

	_, err = st.Certificate(context.Background(), run.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderCert(t *testing.T) {
	out, err := executeProve(t, "false |- q")
	require.NoError(t, err)
	assert.Contains(t, out, "false_elim(0)")
}
