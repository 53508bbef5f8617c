package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// Run statuses.
const (
	StatusRunning    = "running"
	StatusProved     = "proved"
	StatusUnprovable = "unprovable"
	StatusError      = "error"
)

// BeginRun inserts a run record in the 'running' state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// The goal hash is computed from the sequent via canonical JSON so two runs
// of the same goal can be correlated regardless of source formatting.
func (s *Store) BeginRun(ctx context.Context, id string, goal ir.Sequent, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, goal, goal_hash, status, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		goal.String(),
		goal.MustHash(),
		StatusRunning,
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	return nil
}

// AppendEvent appends one trace event to a run.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - re-appending
// the same sequence number is silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, runID string, seq int64, e search.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, iteration, kind, goal_id, rapp_id, rule, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		seq,
		e.Iteration,
		string(e.Kind),
		int64(e.Goal),
		int64(e.Rapp),
		e.Rule,
		e.Outcome,
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// FinishRun records a run's terminal status and final statistics.
// errMsg is stored only for StatusError; pass "" otherwise.
func (s *Store) FinishRun(ctx context.Context, id, status, errMsg string, stats search.Stats, finishedAt time.Time) error {
	if status == StatusRunning {
		return fmt.Errorf("finish run: %q is not a terminal status", status)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, goals = ?, rule_applications = ?, iterations = ?, finished_at = ?
		WHERE id = ?
	`,
		status,
		errMsg,
		stats.Goals,
		stats.RuleApplications,
		stats.Iterations,
		finishedAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	return nil
}

// WriteCertificate stores the reconstructed certificate for a proved run.
// The certificate is serialized to canonical JSON per RFC 8785 so that
// byte-level comparison across runs is meaningful.
//
// Uses ON CONFLICT(run_id) DO NOTHING - a run has exactly one certificate.
func (s *Store) WriteCertificate(ctx context.Context, runID string, goal ir.Sequent, cert ir.Cert) error {
	certJSON, err := ir.MarshalCanonical(ir.CertCanonical(cert))
	if err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates
		(run_id, goal_hash, cert)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		runID,
		goal.MustHash(),
		string(certJSON),
	)
	if err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}

	return nil
}
