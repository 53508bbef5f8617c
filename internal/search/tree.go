package search

import (
	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// NodeID addresses a goal or rule application in the arena. Ids are
// allocated from one shared counter, so they increase strictly from any
// node to its children regardless of node kind. Zero is never a valid id;
// it marks "no parent".
type NodeID int64

// ProofStatus is a goal's resolution state. Exactly one variant holds at
// any time.
type ProofStatus int

const (
	// StatusUnproven means no child rule application has succeeded yet.
	StatusUnproven ProofStatus = iota
	// StatusProvenByRapp means one child rule application is fully proven.
	StatusProvenByRapp
	// StatusProvenByNorm means normalization proved the goal outright.
	StatusProvenByNorm
)

// NormState tracks a goal's progress through the normalization pipeline.
type NormState int

const (
	// NormNone means the goal has not been normalized yet.
	NormNone NormState = iota
	// NormDone means the goal reached its canonical form.
	NormDone
	// NormProven means normalization proved the goal; the certificate is
	// stored on the goal.
	NormProven
)

// RappState is a rule application's resolution state.
type RappState int

const (
	// RappOpen means some child goals are still unresolved.
	RappOpen RappState = iota
	// RappProven means every child goal is proven (or there are none).
	RappProven
	// RappIrrelevant means the rapp can no longer contribute to a proof:
	// a sibling won, an ancestor was pruned, or a child is unprovable.
	RappIrrelevant
)

// Goal is an open proof obligation: an OR-node over its child rule
// applications.
type Goal struct {
	ID     NodeID
	Parent NodeID // parent rapp; zero only for the root

	Obligation  Obligation
	Probability float64 // in (0,1]; equals the parent rapp's probability

	NormState NormState
	Status    ProofStatus
	ProvenBy  NodeID      // rapp id when StatusProvenByRapp
	Cert      Certificate // set when StatusProvenByNorm

	Unprovable bool
	Irrelevant bool

	Branch BranchState

	// FailedRules records rules that failed against this goal so they are
	// never retried here.
	FailedRules map[string]struct{}

	// unsafeQueue is the memoized merge of postponed safe rules and unsafe
	// rules, computed once per goal on first unsafe trial.
	unsafeQueue      []unsafeEntry
	unsafeQueueBuilt bool

	AddedIteration        int64
	LastExpandedIteration int64 // zero = never expanded

	Children []NodeID // rapp ids in creation order

	inQueue bool
}

// HasRemainingRules reports whether the scheduler could still try rules
// against this goal in a later expansion pass.
func (g *Goal) HasRemainingRules() bool {
	if !g.unsafeQueueBuilt {
		// Never fully scheduled; safe and unsafe trials are pending.
		return g.NormState != NormProven
	}
	return len(g.unsafeQueue) > 0
}

// Rapp is one concrete outcome of applying a rule to a goal: an AND-node
// over its child goals.
type Rapp struct {
	ID     NodeID
	Parent NodeID // parent goal

	Rule    Rule
	Combine CombineFunc

	Probability float64 // parent goal probability x rule probability
	Depth       int     // parent goal depth + 1

	State    RappState
	Children []NodeID // goal ids in creation order

	// OpenVars maps each still-unresolved unification variable introduced
	// by this rapp to its origin (always this rapp's id; kept explicit so
	// reachable tables collected over ancestors carry origins).
	OpenVars map[ir.MVarID]NodeID

	// Assignments is the rapp's post-state: every metavariable assignment
	// made by its rule, extended when reconciliation propagates resolutions
	// into this branch.
	Assignments ir.Subst
}

// Tree is the arena owning every goal and rule application of one search
// session. Links are stored as ids; the tree is the only way to navigate
// them.
type Tree struct {
	goals map[NodeID]*Goal
	rapps map[NodeID]*Rapp

	nextID NodeID
	root   NodeID

	goalCount int
	rappCount int
}

// NewTree creates an empty arena. Ids start at 1.
func NewTree() *Tree {
	return &Tree{
		goals:  make(map[NodeID]*Goal),
		rapps:  make(map[NodeID]*Rapp),
		nextID: 1,
	}
}

func (t *Tree) allocID() NodeID {
	id := t.nextID
	t.nextID++
	return id
}

// Root returns the root goal's id.
func (t *Tree) Root() NodeID { return t.root }

// GoalCount returns the number of goals ever created.
func (t *Tree) GoalCount() int { return t.goalCount }

// RappCount returns the number of rule applications ever created.
func (t *Tree) RappCount() int { return t.rappCount }

// Goal looks up a goal by id. The second result is false for unknown ids.
func (t *Tree) Goal(id NodeID) (*Goal, bool) {
	g, ok := t.goals[id]
	return g, ok
}

// Rapp looks up a rule application by id.
func (t *Tree) Rapp(id NodeID) (*Rapp, bool) {
	r, ok := t.rapps[id]
	return r, ok
}

// AddGoal allocates the next id and attaches a goal under parentRapp.
// A zero parentRapp creates the root; the tree must be empty then.
func (t *Tree) AddGoal(ob Obligation, parentRapp NodeID, probability float64, branch BranchState, iteration int64) (*Goal, error) {
	if parentRapp == 0 && t.root != 0 {
		return nil, &InternalError{Op: "AddGoal", Detail: "second root goal"}
	}
	if parentRapp != 0 {
		parent, ok := t.rapps[parentRapp]
		if !ok {
			return nil, &InternalError{Op: "AddGoal", Detail: "unknown parent rapp", Rapp: parentRapp}
		}
		if parent.ID >= t.nextID {
			return nil, &InternalError{Op: "AddGoal", Detail: "non-monotonic id allocation", Rapp: parentRapp}
		}
	}

	g := &Goal{
		ID:             t.allocID(),
		Parent:         parentRapp,
		Obligation:     ob,
		Probability:    probability,
		Branch:         branch,
		FailedRules:    make(map[string]struct{}),
		AddedIteration: iteration,
	}
	t.goals[g.ID] = g
	t.goalCount++

	if parentRapp == 0 {
		t.root = g.ID
	} else {
		parent := t.rapps[parentRapp]
		parent.Children = append(parent.Children, g.ID)
	}
	return g, nil
}

// AddRapp allocates the next id and attaches a rule application under
// parentGoal, registering each newly introduced unification variable's
// origin as the new rapp.
func (t *Tree) AddRapp(rule Rule, combine CombineFunc, parentGoal NodeID, probability float64, newVars []ir.MVarID, assigned ir.Subst) (*Rapp, error) {
	parent, ok := t.goals[parentGoal]
	if !ok {
		return nil, &InternalError{Op: "AddRapp", Detail: "unknown parent goal", Goal: parentGoal}
	}
	if parent.ID >= t.nextID {
		return nil, &InternalError{Op: "AddRapp", Detail: "non-monotonic id allocation", Goal: parentGoal}
	}

	r := &Rapp{
		ID:          t.allocID(),
		Parent:      parentGoal,
		Rule:        rule,
		Combine:     combine,
		Probability: probability,
		Depth:       t.GoalDepth(parentGoal) + 1,
		Assignments: assigned.Clone(),
	}
	if len(newVars) > 0 {
		r.OpenVars = make(map[ir.MVarID]NodeID, len(newVars))
		for _, v := range newVars {
			if _, alreadyAssigned := assigned[v]; alreadyAssigned {
				// Introduced and resolved by the same application; it was
				// never open.
				continue
			}
			r.OpenVars[v] = r.ID
		}
	}
	t.rapps[r.ID] = r
	t.rappCount++

	parent.Children = append(parent.Children, r.ID)
	return r, nil
}

// GoalDepth returns the rule-application depth above a goal: zero for the
// root, the parent rapp's depth otherwise.
func (t *Tree) GoalDepth(id NodeID) int {
	g, ok := t.goals[id]
	if !ok || g.Parent == 0 {
		return 0
	}
	return t.rapps[g.Parent].Depth
}

// ReachableOpenVars collects the open-variable table visible from a goal:
// every still-unresolved variable introduced by an ancestor rapp, mapped to
// its origin.
func (t *Tree) ReachableOpenVars(goal NodeID) map[ir.MVarID]NodeID {
	table := make(map[ir.MVarID]NodeID)
	g := t.goals[goal]
	for g != nil && g.Parent != 0 {
		r := t.rapps[g.Parent]
		for v, origin := range r.OpenVars {
			table[v] = origin
		}
		g = t.goals[r.Parent]
	}
	return table
}

// ResolvedAssignments composes the metavariable assignments recorded by a
// goal's ancestor rapps, root first. Branch copies never share these: the
// copy's rapps were duplicated before any propagation.
func (t *Tree) ResolvedAssignments(goal NodeID) ir.Subst {
	// Collect root-to-leaf so later assignments can chain through earlier
	// ones when applied.
	var chain []*Rapp
	g := t.goals[goal]
	for g != nil && g.Parent != 0 {
		r := t.rapps[g.Parent]
		chain = append(chain, r)
		g = t.goals[r.Parent]
	}

	out := make(ir.Subst)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].Assignments {
			out[k] = v
		}
	}
	return out
}

// MarkGoalProven records that a goal is proven by the given rapp (or by
// normalization when rapp is zero) and propagates the result upward:
// sibling rapps become irrelevant, and a parent rapp whose children are all
// proven becomes proven itself, recursively.
func (t *Tree) MarkGoalProven(goal, byRapp NodeID, cert Certificate) {
	g := t.goals[goal]
	if g.Status != StatusUnproven {
		return
	}
	if byRapp == 0 {
		g.Status = StatusProvenByNorm
		g.NormState = NormProven
		g.Cert = cert
	} else {
		g.Status = StatusProvenByRapp
		g.ProvenBy = byRapp
	}

	// Alternatives for this goal no longer matter.
	for _, childRapp := range g.Children {
		if childRapp != byRapp {
			t.MarkRappIrrelevant(childRapp)
		}
	}

	if g.Parent == 0 {
		return
	}
	parent := t.rapps[g.Parent]
	if parent.State != RappOpen {
		return
	}
	for _, child := range parent.Children {
		if t.goals[child].Status == StatusUnproven {
			return
		}
	}
	parent.State = RappProven
	t.MarkGoalProven(parent.Parent, parent.ID, nil)
}

// MarkRappIrrelevant marks a rapp and its entire subtree irrelevant.
// Nodes are kept for diagnostics; only the flag changes.
func (t *Tree) MarkRappIrrelevant(rapp NodeID) {
	r := t.rapps[rapp]
	if r.State == RappIrrelevant {
		return
	}
	if r.State == RappOpen {
		r.State = RappIrrelevant
	} else {
		// A proven rapp stays proven; its subtree is still marked so the
		// queue drops any stragglers.
		r.State = RappProven
	}
	for _, child := range r.Children {
		t.markGoalIrrelevant(child)
	}
}

func (t *Tree) markGoalIrrelevant(goal NodeID) {
	g := t.goals[goal]
	if g.Irrelevant {
		return
	}
	g.Irrelevant = true
	for _, childRapp := range g.Children {
		t.MarkRappIrrelevant(childRapp)
	}
}

// Subtree returns the ids of every rapp in the subtree rooted at the given
// rapp, in depth-first creation order.
func (t *Tree) Subtree(rapp NodeID) []NodeID {
	var out []NodeID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		out = append(out, id)
		for _, g := range t.rapps[id].Children {
			for _, child := range t.goals[g].Children {
				walk(child)
			}
		}
	}
	walk(rapp)
	return out
}
