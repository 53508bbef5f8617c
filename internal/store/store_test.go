package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSequent(t *testing.T, src string) ir.Sequent {
	t.Helper()
	seq, err := ir.ParseSequent(src)
	if err != nil {
		t.Fatalf("ParseSequent(%q) failed: %v", src, err)
	}
	return seq
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"foreign_keys": "1", // ON
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d failed: %v", i+1, err)
		}
		s.Close()
	}
}

func TestRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.BeginRun(ctx, "run-1", goal, started); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if run.Status != StatusRunning {
		t.Errorf("status = %q, want %q", run.Status, StatusRunning)
	}
	if run.Goal != goal.String() {
		t.Errorf("goal = %q, want %q", run.Goal, goal.String())
	}
	if run.GoalHash != goal.MustHash() {
		t.Errorf("goal_hash = %q, want %q", run.GoalHash, goal.MustHash())
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", run.StartedAt, started)
	}
	if !run.FinishedAt.IsZero() {
		t.Errorf("finished_at = %v, want zero while running", run.FinishedAt)
	}

	finished := started.Add(2 * time.Second)
	stats := search.Stats{Goals: 3, RuleApplications: 2, Iterations: 4}
	if err := s.FinishRun(ctx, "run-1", StatusProved, "", stats, finished); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	run, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() after finish failed: %v", err)
	}
	if run.Status != StatusProved {
		t.Errorf("status = %q, want %q", run.Status, StatusProved)
	}
	if run.Goals != 3 || run.RuleApplications != 2 || run.Iterations != 4 {
		t.Errorf("stats = (%d, %d, %d), want (3, 2, 4)", run.Goals, run.RuleApplications, run.Iterations)
	}
	if !run.FinishedAt.Equal(finished) {
		t.Errorf("finished_at = %v, want %v", run.FinishedAt, finished)
	}
}

func TestBeginRun_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "|- true")
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.BeginRun(ctx, "run-1", goal, started); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	// Second insert with the same ID is silently ignored
	other := testSequent(t, "|- false")
	if err := s.BeginRun(ctx, "run-1", other, started.Add(time.Hour)); err != nil {
		t.Fatalf("duplicate BeginRun() failed: %v", err)
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if run.Goal != goal.String() {
		t.Errorf("goal = %q, want original %q", run.Goal, goal.String())
	}
}

func TestFinishRun_RejectsRunning(t *testing.T) {
	s := openTestStore(t)

	err := s.FinishRun(context.Background(), "run-1", StatusRunning, "", search.Stats{}, time.Now())
	if err == nil {
		t.Fatal("FinishRun(running) should fail")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEvents_OrderedBySeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	if err := s.BeginRun(ctx, "run-1", goal, time.Now()); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	// Append out of order; reads must come back seq-ascending
	events := []struct {
		seq int64
		e   search.Event
	}{
		{3, search.Event{Kind: search.EventGoalProven, Iteration: 2, Goal: 1}},
		{1, search.Event{Kind: search.EventGoalAdded, Goal: 1}},
		{2, search.Event{Kind: search.EventRuleTried, Iteration: 1, Goal: 1, Rule: "assumption", Outcome: "succeeded"}},
	}
	for _, ev := range events {
		if err := s.AppendEvent(ctx, "run-1", ev.seq, ev.e); err != nil {
			t.Fatalf("AppendEvent(seq=%d) failed: %v", ev.seq, err)
		}
	}

	got, err := s.Events(ctx, "run-1", "")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	for i, e := range got {
		if e.Seq != int64(i+1) {
			t.Errorf("event %d: seq = %d, want %d", i, e.Seq, i+1)
		}
	}
	if got[1].Rule != "assumption" || got[1].Outcome != "succeeded" {
		t.Errorf("event 2 = %+v, want rule_tried detail", got[1])
	}
}

func TestAppendEvent_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	if err := s.BeginRun(ctx, "run-1", goal, time.Now()); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	first := search.Event{Kind: search.EventGoalAdded, Goal: 1}
	if err := s.AppendEvent(ctx, "run-1", 1, first); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}
	// Same seq again is silently ignored
	if err := s.AppendEvent(ctx, "run-1", 1, search.Event{Kind: search.EventGoalProven, Goal: 9}); err != nil {
		t.Fatalf("duplicate AppendEvent() failed: %v", err)
	}

	got, err := s.Events(ctx, "run-1", "")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Kind != string(search.EventGoalAdded) {
		t.Errorf("kind = %q, want original %q", got[0].Kind, search.EventGoalAdded)
	}
}

func TestEvents_KindFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	if err := s.BeginRun(ctx, "run-1", goal, time.Now()); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	kinds := []search.EventKind{
		search.EventGoalAdded,
		search.EventRuleTried,
		search.EventRuleTried,
		search.EventGoalProven,
	}
	for i, kind := range kinds {
		if err := s.AppendEvent(ctx, "run-1", int64(i+1), search.Event{Kind: kind, Goal: 1}); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	got, err := s.Events(ctx, "run-1", string(search.EventRuleTried))
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rule_tried events, want 2", len(got))
	}

	empty, err := s.Events(ctx, "run-1", string(search.EventBranchCopied))
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if empty == nil {
		t.Error("Events() returned nil, want empty slice")
	}
	if len(empty) != 0 {
		t.Errorf("got %d branch_copied events, want 0", len(empty))
	}
}

func TestCertificate_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	if err := s.BeginRun(ctx, "run-1", goal, time.Now()); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	cert := ir.Cert(ir.AndIntroCert{Left: ir.HypCert{Index: 0}, Right: ir.TrueIntroCert{}})
	if err := s.WriteCertificate(ctx, "run-1", goal, cert); err != nil {
		t.Fatalf("WriteCertificate() failed: %v", err)
	}

	got, err := s.Certificate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Certificate() failed: %v", err)
	}
	want, err := ir.MarshalCanonical(ir.CertCanonical(cert))
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	if got != string(want) {
		t.Errorf("cert = %q, want %q", got, want)
	}
}

func TestCertificate_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Certificate(context.Background(), "run-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "|- true")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := s.BeginRun(ctx, id, goal, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("BeginRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("order = [%s, %s], want [run-c, run-b]", runs[0].ID, runs[1].ID)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := openTestStore(t)

	runs, err := s.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("ListRuns() returned nil, want empty slice")
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}

func TestRecorder_AppendsInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	goal := testSequent(t, "a |- a")
	if err := s.BeginRun(ctx, "run-1", goal, time.Now()); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	rec := NewRecorder(ctx, s, "run-1")
	rec.Trace(search.Event{Kind: search.EventGoalAdded, Goal: 1})
	rec.Trace(search.Event{Kind: search.EventGoalExpanded, Iteration: 1, Goal: 1})
	rec.Trace(search.Event{Kind: search.EventGoalProven, Iteration: 1, Goal: 1})

	if err := rec.Err(); err != nil {
		t.Fatalf("recorder error: %v", err)
	}
	if rec.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", rec.EventCount())
	}

	got, err := s.Events(ctx, "run-1", "")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	wantKinds := []search.EventKind{search.EventGoalAdded, search.EventGoalExpanded, search.EventGoalProven}
	for i, e := range got {
		if e.Kind != string(wantKinds[i]) {
			t.Errorf("event %d: kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
	}
}

func TestRecorder_StopsAfterError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// No run row: the foreign key constraint rejects the first append.
	rec := NewRecorder(ctx, s, "no-such-run")
	rec.Trace(search.Event{Kind: search.EventGoalAdded, Goal: 1})
	if rec.Err() == nil {
		t.Fatal("expected foreign key failure")
	}
	firstErr := rec.Err()

	rec.Trace(search.Event{Kind: search.EventGoalProven, Goal: 1})
	if rec.Err() != firstErr {
		t.Errorf("error changed after retained failure")
	}
	if rec.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0", rec.EventCount())
	}
}
