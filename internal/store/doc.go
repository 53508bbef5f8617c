// Package store provides SQLite-backed durable storage for proof-search runs.
//
// The store implements an append-only trace log with:
//   - Runs: one row per proof attempt (goal, status, final statistics)
//   - Events: the search trace, one row per diagnostic event
//   - Certificates: the reconstructed proof certificate for proved runs
//
// # Critical Patterns
//
// CP-1: Append-Only Trace
//   - Events are never updated or deleted; a run's trace is immutable
//   - UNIQUE(run_id, seq) with ON CONFLICT DO NOTHING makes appends idempotent
//
// CP-2: Logical Identity and Time
//   - Event ordering uses seq INTEGER (per-run logical clock), never timestamps
//   - The iteration column carries the engine's own expansion counter
//
// CP-4: Deterministic Query Results
//   - All trace queries MUST include: ORDER BY seq ASC
//   - Run listings order by started_at DESC, id ASC for a stable tie-break
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Goal hashes and certificate JSON are computed via internal/ir using
// RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
