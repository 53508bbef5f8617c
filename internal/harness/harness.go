package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/rules"
	"github.com/Ruben-VandeVelde/aesop/internal/ruleset"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
	"github.com/Ruben-VandeVelde/aesop/internal/store"
	"github.com/Ruben-VandeVelde/aesop/internal/testutil"
)

// GoalResult is the outcome of one goal in a scenario run.
type GoalResult struct {
	// Sequent is the parsed obligation in canonical concrete syntax.
	Sequent string `json:"sequent"`

	// Status is "proved", "unprovable" or "limit".
	Status string `json:"status"`

	// Certificate is the rendered proof certificate of a proved goal.
	Certificate string `json:"certificate,omitempty"`

	// Stats carries the engine's resource counters for this goal.
	// Excluded from golden snapshots; outcomes, not costs, are the contract.
	Stats search.Stats `json:"-"`

	// RunID identifies the recorded trace of this goal in the result store.
	RunID string `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every goal matched its expectation.
	Pass bool

	// Goals holds one entry per scenario goal, in order.
	Goals []GoalResult

	// Errors lists expectation mismatches. Empty when Pass is true.
	Errors []string

	// Store holds the recorded traces, one run per goal, with fixed run
	// IDs ("scenario-...0001" onward). It is closed by Close.
	Store *store.Store
}

// AddError records an expectation mismatch and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Close releases the result's trace store.
func (r *Result) Close() error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// Run executes a scenario and returns the result.
//
// Each goal runs in a fresh search session against a shared in-memory
// trace store. Deterministic run IDs and timestamps keep the recorded
// traces reproducible across runs.
func Run(scenario *Scenario) (*Result, error) {
	library, err := loadLibrary(scenario.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	baseOpts, err := buildOptions(scenario.Options)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	runIDs := testutil.NewFixedRunIDGenerator("scenario")
	clock := testutil.NewSteppedTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	result := &Result{Pass: true, Store: st}
	ctx := context.Background()

	for i, step := range scenario.Goals {
		goalResult, err := runGoal(ctx, st, library, baseOpts, runIDs, clock, step)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("scenario %s: goals[%d]: %w", scenario.Name, i, err)
		}
		result.Goals = append(result.Goals, goalResult)
		checkExpectation(result, i, step, goalResult)
	}

	return result, nil
}

// runGoal executes one obligation in a fresh session, recording its trace.
func runGoal(
	ctx context.Context,
	st *store.Store,
	library *rules.Library,
	opts search.Options,
	runIDs *testutil.FixedRunIDGenerator,
	clock *testutil.SteppedTime,
	step GoalStep,
) (GoalResult, error) {
	seq, err := ir.ParseSequent(step.Sequent)
	if err != nil {
		return GoalResult{}, fmt.Errorf("parse sequent: %w", err)
	}

	runID := runIDs.NewRunID()
	if err := st.BeginRun(ctx, runID, seq, clock.Now()); err != nil {
		return GoalResult{}, err
	}
	rec := store.NewRecorder(ctx, st, runID)

	goalOpts := opts
	goalOpts.Tracer = rec

	res, searchErr := search.Search(ctx, rules.NewRuleSet(library), goalOpts, rules.Goal{Seq: seq})
	if err := rec.Err(); err != nil {
		return GoalResult{}, fmt.Errorf("record trace: %w", err)
	}

	out := GoalResult{Sequent: seq.String(), RunID: runID}
	switch {
	case searchErr == nil:
		proof, ok := res.Cert.(rules.Proof)
		if !ok {
			return GoalResult{}, fmt.Errorf("unexpected certificate type %T", res.Cert)
		}
		out.Status = ExpectProved
		out.Certificate = rules.RenderCert(proof.Cert)
		out.Stats = res.Stats
		if err := st.WriteCertificate(ctx, runID, seq, proof.Cert); err != nil {
			return GoalResult{}, err
		}
		if err := st.FinishRun(ctx, runID, store.StatusProved, "", res.Stats, clock.Now()); err != nil {
			return GoalResult{}, err
		}
	case search.IsUnprovableError(searchErr):
		out.Status = ExpectUnprovable
		if err := st.FinishRun(ctx, runID, store.StatusUnprovable, "", search.Stats{}, clock.Now()); err != nil {
			return GoalResult{}, err
		}
	case search.IsLimitError(searchErr):
		out.Status = ExpectLimit
		if err := st.FinishRun(ctx, runID, store.StatusError, searchErr.Error(), search.Stats{}, clock.Now()); err != nil {
			return GoalResult{}, err
		}
	default:
		// Internal errors mean the scenario itself is broken
		return GoalResult{}, searchErr
	}

	return out, nil
}

// checkExpectation validates one goal's outcome against its expectation.
func checkExpectation(result *Result, index int, step GoalStep, got GoalResult) {
	if got.Status != step.Expect {
		result.AddError("goals[%d] %s: status = %s, want %s", index, got.Sequent, got.Status, step.Expect)
		return
	}
	if step.Certificate != "" && got.Certificate != step.Certificate {
		result.AddError("goals[%d] %s: certificate = %s, want %s", index, got.Sequent, got.Certificate, step.Certificate)
	}
}

// loadLibrary compiles the scenario's rule set, or falls back to the
// bundled default rules.
func loadLibrary(path string) (*rules.Library, error) {
	if path == "" {
		return rules.Default(), nil
	}
	set, err := ruleset.CompileFile(path)
	if err != nil {
		return nil, err
	}
	return set.Library()
}

// buildOptions applies a scenario's option overrides over the defaults.
func buildOptions(clause *OptionsClause) (search.Options, error) {
	opts := search.DefaultOptions()
	if clause == nil {
		return opts, nil
	}

	if clause.MaxGoals != nil {
		opts.MaxGoals = *clause.MaxGoals
	}
	if clause.MaxRuleApplications != nil {
		opts.MaxRuleApplications = *clause.MaxRuleApplications
	}
	if clause.MaxRuleApplicationDepth != nil {
		opts.MaxRuleApplicationDepth = *clause.MaxRuleApplicationDepth
	}
	if clause.MaxNormIterations != nil {
		opts.MaxNormIterations = *clause.MaxNormIterations
	}
	if clause.EnableSimplification != nil {
		opts.EnableSimplification = *clause.EnableSimplification
	}
	if clause.TreatSafeAsUnsafeWithMVars != nil {
		opts.TreatSafeAsUnsafeWithMVars = *clause.TreatSafeAsUnsafeWithMVars
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
