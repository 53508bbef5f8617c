package search

import (
	"context"
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// Stats summarizes a finished search.
type Stats struct {
	Goals            int   `json:"goals"`
	RuleApplications int   `json:"rule_applications"`
	Iterations       int64 `json:"iterations"`
}

// Result is a successful search outcome: a closed certificate for the root
// goal plus counters for diagnostics.
type Result struct {
	Cert  Certificate
	Stats Stats
}

// Session owns one best-first proof search: the tree, the active queue,
// the iteration clock and the metavariable allocator. A session serves one
// Search call; it is not reusable and not safe for concurrent use. Rule
// execution is invoked synchronously from the search loop, so collaborators
// never observe the tree mid-mutation.
type Session struct {
	tree  *Tree
	queue *activeQueue
	gov   governor
	rules RuleSet
	opts  Options
	clock *Clock

	tracerImpl Tracer
	mvarSeq    ir.MVarID
}

// NewSession validates the configuration and prepares an empty session.
func NewSession(rules RuleSet, opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rules.Selector == nil || rules.Executor == nil {
		return nil, fmt.Errorf("rule set incomplete: selector and executor are required")
	}
	tree := NewTree()
	return &Session{
		tree:       tree,
		queue:      newActiveQueue(),
		gov:        governor{opts: opts, tree: tree},
		rules:      rules,
		opts:       opts,
		clock:      NewClock(),
		tracerImpl: opts.tracer(),
	}, nil
}

// Search proves the goal or reports why it cannot. The error is an
// *UnprovableError when the search space was exhausted, a *LimitError when
// a resource limit was breached, an *InternalError on an engine defect, or
// the context's error when cancelled.
func Search(ctx context.Context, rules RuleSet, opts Options, goal Obligation) (*Result, error) {
	s, err := NewSession(rules, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, goal)
}

// Run executes the search loop for a root obligation.
func (s *Session) Run(ctx context.Context, goal Obligation) (*Result, error) {
	if s.tree.Root() != 0 {
		return nil, &InternalError{Op: "Run", Detail: "session already used"}
	}
	if err := s.gov.ensureGoals(1); err != nil {
		return nil, err
	}

	root, err := s.tree.AddGoal(goal, 0, 1.0, BranchState{}, s.clock.Current())
	if err != nil {
		return nil, err
	}
	// Seed the allocator past any ids the root obligation already uses.
	for v := range goal.Metavars() {
		if v > s.mvarSeq {
			s.mvarSeq = v
		}
	}
	s.enqueueGoal(root, s.clock.Current())
	s.trace(Event{Kind: EventGoalAdded, Goal: root.ID})

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("search interrupted: %w", ctx.Err())
		default:
		}

		entry, ok := s.queue.popMin()
		if !ok {
			break
		}
		g, ok := s.tree.Goal(entry.goal)
		if !ok {
			return nil, &InternalError{Op: "Run", Detail: "queued goal missing from tree", Goal: entry.goal}
		}
		g.inQueue = false
		if g.Irrelevant || g.Unprovable || g.Status != StatusUnproven {
			// Resolved or abandoned since it was enqueued.
			continue
		}

		iter := s.clock.Next()
		if s.gov.depthExceeded(g.ID) {
			s.pruneAtDepth(g, iter)
		} else if err := s.expand(ctx, g, iter); err != nil {
			return nil, err
		}

		rootGoal, _ := s.tree.Goal(s.tree.Root())
		if rootGoal.Status != StatusUnproven || rootGoal.Unprovable {
			break
		}
	}

	rootGoal, _ := s.tree.Goal(s.tree.Root())
	if rootGoal.Status == StatusUnproven {
		return nil, &UnprovableError{Goal: goal.String()}
	}

	cert, err := s.reconstruct()
	if err != nil {
		return nil, err
	}
	s.trace(Event{Kind: EventProofFound, Iteration: s.clock.Current(), Goal: rootGoal.ID})
	return &Result{
		Cert: cert,
		Stats: Stats{
			Goals:            s.tree.GoalCount(),
			RuleApplications: s.tree.RappCount(),
			Iterations:       s.clock.Current(),
		},
	}, nil
}

// Tree exposes the search tree for tracing and post-mortem inspection.
func (s *Session) Tree() *Tree { return s.tree }

// expand runs one expansion pass on a goal: normalization on first
// contact, then the safe/unsafe trial phases. Afterward the goal either
// was proven, has open children to wait on, sits back in the queue with
// rules remaining, or is out of options and propagates failure.
func (s *Session) expand(ctx context.Context, g *Goal, iter int64) error {
	g.LastExpandedIteration = iter
	s.trace(Event{Kind: EventGoalExpanded, Iteration: iter, Goal: g.ID})

	if g.NormState == NormNone {
		proven, err := s.normalize(ctx, g, iter)
		if err != nil {
			return err
		}
		if proven {
			return nil
		}
	}

	if err := s.schedule(ctx, g, iter); err != nil {
		return err
	}

	if g.Status != StatusUnproven || g.Unprovable || g.Irrelevant {
		return nil
	}
	if s.hasOpenChildRapps(g) {
		// Some alternative is in flight; this goal resolves by propagation.
		return nil
	}
	if g.HasRemainingRules() {
		s.enqueueGoal(g, iter)
		return nil
	}
	s.markUnprovable(g, iter)
	return nil
}

// pruneAtDepth abandons a goal past the depth limit: the goal becomes
// unprovable without expansion, its subtree is discarded, and failure
// propagates like any other dead end.
func (s *Session) pruneAtDepth(g *Goal, iter int64) {
	for _, child := range g.Children {
		s.tree.MarkRappIrrelevant(child)
	}
	s.trace(Event{Kind: EventGoalUnprovable, Iteration: iter, Goal: g.ID, Detail: "depth limit reached"})
	g.Unprovable = true
	s.propagateFailure(g, iter)
}

// markUnprovable records that a goal has no remaining way to succeed and
// propagates the failure upward.
func (s *Session) markUnprovable(g *Goal, iter int64) {
	g.Unprovable = true
	s.trace(Event{Kind: EventGoalUnprovable, Iteration: iter, Goal: g.ID})
	s.propagateFailure(g, iter)
}

// propagateFailure retires the parent rapp of an unprovable goal (AND
// semantics: one dead child kills the application) and re-examines the
// grandparent goal: it is re-enqueued when rules remain, waits when other
// alternatives are open, and becomes unprovable itself otherwise.
func (s *Session) propagateFailure(g *Goal, iter int64) {
	if g.Parent == 0 {
		return
	}
	r, _ := s.tree.Rapp(g.Parent)
	if r.State != RappOpen {
		return
	}
	s.tree.MarkRappIrrelevant(r.ID)

	parent, _ := s.tree.Goal(r.Parent)
	if parent.Status != StatusUnproven || parent.Unprovable || parent.Irrelevant {
		return
	}
	if s.hasOpenChildRapps(parent) {
		return
	}
	if parent.HasRemainingRules() {
		s.enqueueGoal(parent, iter)
		return
	}
	s.markUnprovable(parent, iter)
}

func (s *Session) hasOpenChildRapps(g *Goal) bool {
	for _, child := range g.Children {
		if r, ok := s.tree.Rapp(child); ok && r.State == RappOpen {
			return true
		}
	}
	return false
}

// enqueueGoal pushes a fresh queue entry for a goal unless one is already
// pending.
func (s *Session) enqueueGoal(g *Goal, iter int64) {
	if g.inQueue {
		return
	}
	g.inQueue = true
	s.queue.push(queueEntry{
		goal:         g.ID,
		probability:  g.Probability,
		lastExpanded: g.LastExpandedIteration,
		added:        iter,
	})
}

func (s *Session) newMVar() ir.MVarID {
	s.mvarSeq++
	return s.mvarSeq
}

func (s *Session) trace(e Event) {
	s.tracerImpl.Trace(e)
}
