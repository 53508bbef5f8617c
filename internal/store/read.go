package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested run or certificate does not exist.
var ErrNotFound = errors.New("not found")

// Run is a stored proof-search run.
type Run struct {
	ID               string
	Goal             string
	GoalHash         string
	Status           string
	Error            string
	Goals            int64
	RuleApplications int64
	Iterations       int64
	StartedAt        time.Time
	FinishedAt       time.Time // zero while running
}

// TraceEvent is one stored trace event.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Iteration int64  `json:"iteration"`
	Kind      string `json:"kind"`
	GoalID    int64  `json:"goal_id,omitempty"`
	RappID    int64  `json:"rapp_id,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, goal, goal_hash, status, error, goals, rule_applications, iterations, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
// Ordering is by started_at DESC with id ASC as a stable tie-break.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal, goal_hash, status, error, goals, rule_applications, iterations, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
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

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// Events returns a run's trace, ordered deterministically per CP-4:
// ORDER BY seq ASC. A non-empty kind restricts the result to that event kind.
//
// Returns an empty slice (not nil) if the run has no matching events.
func (s *Store) Events(ctx context.Context, runID, kind string) ([]TraceEvent, error) {
	query := `
		SELECT seq, iteration, kind, goal_id, rapp_id, rule, outcome, detail
		FROM events
		WHERE run_id = ?
	`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	// CP-4: Deterministic ordering
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []TraceEvent
	for rows.Next() {
		var e TraceEvent
		if err := rows.Scan(&e.Seq, &e.Iteration, &e.Kind, &e.GoalID, &e.RappID, &e.Rule, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []TraceEvent{}
	}

	return events, nil
}

// Certificate returns the canonical-JSON certificate stored for a run,
// or ErrNotFound if the run has none.
func (s *Store) Certificate(ctx context.Context, runID string) (string, error) {
	var cert string
	err := s.db.QueryRowContext(ctx, `
		SELECT cert FROM certificates WHERE run_id = ?
	`, runID).Scan(&cert)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("certificate for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get certificate: %w", err)
	}

	return cert, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt string
	)
	err := row.Scan(
		&run.ID,
		&run.Goal,
		&run.GoalHash,
		&run.Status,
		&run.Error,
		&run.Goals,
		&run.RuleApplications,
		&run.Iterations,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt != "" {
		run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}

	return run, nil
}
