package search

import (
	"context"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// Obligation is a domain proof obligation. The engine treats it as opaque
// except for rendering and metavariable inspection.
type Obligation interface {
	String() string

	// Metavars reports the unification variables the obligation references.
	Metavars() map[ir.MVarID]struct{}
}

// Certificate is a domain proof artifact. The engine treats it as opaque
// until the final closing step.
type Certificate interface {
	// Close applies resolved metavariable assignments to every witness
	// position and fails if unresolved placeholders remain.
	Close(assign ir.Subst) (Certificate, error)
}

// Phase classifies a rule for the scheduler.
type Phase int

const (
	// PhaseNorm rules run during normalization, ordered by signed priority:
	// negative priorities run before simplification, the rest after.
	PhaseNorm Phase = iota + 1
	// PhaseSafe rules are tried first, in priority order; a safe success is
	// accepted immediately unless it assigns foreign unification variables.
	PhaseSafe
	// PhaseUnsafe rules branch; they are tried in probability order.
	PhaseUnsafe
)

func (p Phase) String() string {
	switch p {
	case PhaseNorm:
		return "norm"
	case PhaseSafe:
		return "safe"
	case PhaseUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// Rule describes one inference rule as seen by the engine. The rule's
// transformation semantics live entirely in the RuleExecutor.
type Rule struct {
	Name  string
	Phase Phase

	// Priority orders norm rules (signed: negative = pre-simplification)
	// and safe rules (ascending).
	Priority int

	// Probability is the heuristic success weight for unsafe rules, in (0,1].
	Probability float64
}

// CombineFunc assembles a certificate for a rule application from the
// certificates of its child goals. It must be deterministic.
type CombineFunc func(children []Certificate) (Certificate, error)

// Application is one concrete outcome of applying a rule to a goal.
type Application struct {
	// Children are the obligations that replace the goal (AND semantics).
	// An empty slice proves the goal outright.
	Children []Obligation

	// Probability is the rule's success multiplier for this application,
	// in (0,1].
	Probability float64

	// NewVars lists metavariables introduced by this application.
	NewVars []ir.MVarID

	// Assigned records metavariables this application resolves. Assigning a
	// variable introduced by an ancestor rule application triggers branch
	// reconciliation.
	Assigned ir.Subst

	// Memo, when non-nil, replaces the rule's entry in the goal's
	// branch-local state for all descendant goals.
	Memo any

	// Combine builds this application's certificate from its children's.
	Combine CombineFunc
}

// ApplyContext carries per-trial capabilities into the executor.
type ApplyContext struct {
	// Branch is the goal's branch-local rule state.
	Branch BranchState

	// Resolved is the composition of metavariable assignments made by the
	// goal's ancestor rule applications. Executors should interpret the
	// obligation under this substitution.
	Resolved ir.Subst

	// NewMVar mints a fresh metavariable id from the session allocator.
	NewMVar func() ir.MVarID
}

// RuleExecutor applies a rule to a goal. A nil error with no applications
// means the rule did not apply; an error is a recoverable execution failure.
// Apply must be deterministic given the same pre-state: branch copies rely
// on re-running rules producing identical output.
type RuleExecutor interface {
	Apply(ctx context.Context, goal Obligation, rule Rule, actx ApplyContext) ([]Application, error)
}

// RuleSelector returns the rules applicable to a goal, ordered: norm rules
// by priority, safe rules by priority, unsafe rules by probability
// descending. It must be side-effect free and total.
type RuleSelector interface {
	Select(goal Obligation) []Rule
}

// SimplifyOutcome tags the result of a simplification pass.
type SimplifyOutcome int

const (
	// SimpUnchanged means the simplifier left the goal alone.
	SimpUnchanged SimplifyOutcome = iota
	// SimpSimplified means the goal was rewritten and normalization restarts.
	SimpSimplified
	// SimpSolved means the simplifier proved the goal outright.
	SimpSolved
)

// SimplifyResult carries the outcome of one simplification pass.
type SimplifyResult struct {
	Outcome SimplifyOutcome

	// Goal is the rewritten obligation when Outcome is SimpSimplified.
	Goal Obligation

	// Cert is the proof when Outcome is SimpSolved.
	Cert Certificate

	// Wrap, when Outcome is SimpSimplified, lifts a certificate for the
	// rewritten goal back to the original. A nil Wrap means the certificates
	// coincide.
	Wrap CombineFunc
}

// Simplifier is the term-simplification collaborator used during
// normalization.
type Simplifier interface {
	Simplify(ctx context.Context, goal Obligation, resolved ir.Subst) (SimplifyResult, error)
}

// RuleSet bundles the external collaborators consumed by a search session.
type RuleSet struct {
	Selector RuleSelector
	Executor RuleExecutor

	// Simplifier may be nil; normalization then skips the simplification
	// step regardless of Options.EnableSimplification.
	Simplifier Simplifier
}

// BranchState is rule-local memo data threaded along one root-to-leaf path.
// It is immutable: With returns a new state, and sibling branches never
// observe each other's updates.
type BranchState struct {
	m map[string]any
}

// Get returns the memo stored for a rule, if any.
func (b BranchState) Get(rule string) (any, bool) {
	v, ok := b.m[rule]
	return v, ok
}

// With returns a copy of the state with the rule's memo replaced.
func (b BranchState) With(rule string, memo any) BranchState {
	out := make(map[string]any, len(b.m)+1)
	for k, v := range b.m {
		out[k] = v
	}
	out[rule] = memo
	return BranchState{m: out}
}

// Len returns the number of rules with stored memos.
func (b BranchState) Len() int {
	return len(b.m)
}
