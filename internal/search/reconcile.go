package search

import (
	"context"
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// reconcile handles an application that assigns unification variables
// introduced by ancestor rule applications. Committing such an assignment
// would silently constrain every sibling branch sharing those variables, so
// before the assignment lands the subtree rooted at the variables' origin
// is duplicated: the copy keeps the variables free and continues to compete
// in the queue, while the original absorbs the assignments.
//
// When a copy happens, the copied counterpart of g is returned so the
// caller can deliver alternative applications of the same trial there: in
// the counterpart's branch the variables are still free, letting each
// alternative commit its own resolution.
func (s *Session) reconcile(ctx context.Context, g *Goal, app *Application, iter int64) (NodeID, error) {
	if len(app.Assigned) == 0 {
		return 0, nil
	}

	own := make(map[ir.MVarID]struct{}, len(app.NewVars))
	for _, v := range app.NewVars {
		own[v] = struct{}{}
	}

	table := s.tree.ReachableOpenVars(g.ID)
	resolved := s.tree.ResolvedAssignments(g.ID)

	origin := NodeID(0)
	foreign := make(ir.Subst)
	for v, t := range app.Assigned {
		if _, isOwn := own[v]; isOwn {
			continue
		}
		if _, dup := resolved[v]; dup {
			return 0, &InternalError{Op: "reconcile", Detail: fmt.Sprintf("duplicate assignment of variable ?m%d", v), Goal: g.ID}
		}
		o, ok := table[v]
		if !ok {
			return 0, &InternalError{Op: "reconcile", Detail: fmt.Sprintf("assignment to unreachable variable ?m%d", v), Goal: g.ID}
		}
		foreign[v] = t
		if origin == 0 || o < origin {
			origin = o
		}
	}
	if len(foreign) == 0 {
		return 0, nil
	}

	// Every foreign variable's origin sits on the path from the root to g;
	// the smallest origin id is the topmost, so its subtree covers them all.
	copyRoot, idMap, err := s.copyBranch(origin, iter)
	if err != nil {
		return 0, err
	}
	s.trace(Event{Kind: EventBranchCopied, Iteration: iter, Goal: g.ID, Rapp: copyRoot, Detail: fmt.Sprintf("origin rapp %d, %d variables committed", origin, len(foreign))})

	// The original branch commits: the resolutions enter the post-state of
	// every rapp in the origin subtree and the variables close there.
	for _, rid := range s.tree.Subtree(origin) {
		r, _ := s.tree.Rapp(rid)
		if r.Assignments == nil {
			r.Assignments = make(ir.Subst, len(foreign))
		}
		for v, t := range foreign {
			r.Assignments[v] = t
			delete(r.OpenVars, v)
		}
	}

	counterpart, ok := idMap[g.ID]
	if !ok {
		// g sits below every foreign variable's origin, so the copy must
		// contain it.
		return 0, &InternalError{Op: "reconcile", Detail: "goal missing from copied subtree", Goal: g.ID}
	}
	return counterpart, nil
}

// copyBranch duplicates the subtree rooted at a rapp under the same parent
// goal. The copy preserves statuses, branch state, failure memos and unsafe
// queues, but gets fresh ids and reset queue metadata; open copied goals are
// enqueued as of the current iteration. Resource limits apply to the copies
// like to any other nodes, and are checked before anything is created.
// The returned map takes each source node id to its copy.
func (s *Session) copyBranch(origin NodeID, iter int64) (NodeID, map[NodeID]NodeID, error) {
	src, ok := s.tree.Rapp(origin)
	if !ok {
		return 0, nil, &InternalError{Op: "copyBranch", Detail: "unknown origin rapp", Rapp: origin}
	}

	goals, rapps := s.countSubtree(origin)
	if err := s.gov.ensureRapps(rapps); err != nil {
		return 0, nil, err
	}
	if err := s.gov.ensureGoals(goals); err != nil {
		return 0, nil, err
	}

	idMap := make(map[NodeID]NodeID, goals+rapps)

	var copyRapp func(srcID, parentGoal NodeID) (NodeID, error)
	var copyGoal func(srcID, parentRapp NodeID) (NodeID, error)

	copyRapp = func(srcID, parentGoal NodeID) (NodeID, error) {
		r, _ := s.tree.Rapp(srcID)
		newVars := make([]ir.MVarID, 0, len(r.OpenVars))
		for v := range r.OpenVars {
			newVars = append(newVars, v)
		}
		nr, err := s.tree.AddRapp(r.Rule, r.Combine, parentGoal, r.Probability, newVars, r.Assignments)
		if err != nil {
			return 0, err
		}
		nr.State = r.State
		idMap[srcID] = nr.ID
		for _, child := range r.Children {
			if _, err := copyGoal(child, nr.ID); err != nil {
				return 0, err
			}
		}
		return nr.ID, nil
	}

	copyGoal = func(srcID, parentRapp NodeID) (NodeID, error) {
		g, _ := s.tree.Goal(srcID)
		ng, err := s.tree.AddGoal(g.Obligation, parentRapp, g.Probability, g.Branch, iter)
		if err != nil {
			return 0, err
		}
		ng.NormState = g.NormState
		ng.Status = g.Status
		ng.Cert = g.Cert
		ng.Unprovable = g.Unprovable
		ng.Irrelevant = g.Irrelevant
		for name := range g.FailedRules {
			ng.FailedRules[name] = struct{}{}
		}
		ng.unsafeQueueBuilt = g.unsafeQueueBuilt
		if len(g.unsafeQueue) > 0 {
			ng.unsafeQueue = append([]unsafeEntry(nil), g.unsafeQueue...)
		}
		idMap[srcID] = ng.ID
		for _, child := range g.Children {
			if _, err := copyRapp(child, ng.ID); err != nil {
				return 0, err
			}
		}
		if g.Status == StatusProvenByRapp {
			ng.ProvenBy = idMap[g.ProvenBy]
		}
		if s.isOpen(ng) {
			s.enqueueGoal(ng, iter)
			s.trace(Event{Kind: EventGoalAdded, Iteration: iter, Goal: ng.ID, Rapp: parentRapp, Detail: "branch copy"})
		}
		return ng.ID, nil
	}

	root, err := copyRapp(origin, src.Parent)
	if err != nil {
		return 0, nil, err
	}
	return root, idMap, nil
}

// countSubtree returns the number of goals and rapps in the subtree rooted
// at a rapp, the rapp itself included.
func (s *Session) countSubtree(origin NodeID) (goals, rapps int) {
	for _, rid := range s.tree.Subtree(origin) {
		rapps++
		r, _ := s.tree.Rapp(rid)
		goals += len(r.Children)
	}
	return goals, rapps
}

// isOpen reports whether a goal should sit in the active queue: unresolved,
// still relevant, and with scheduling work left.
func (s *Session) isOpen(g *Goal) bool {
	return g.Status == StatusUnproven && !g.Unprovable && !g.Irrelevant && g.HasRemainingRules()
}
