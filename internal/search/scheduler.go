package search

import (
	"context"
	"sort"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// Probability assigned to a safe rule that gets postponed into the unsafe
// queue because its application would commit foreign unification variables.
// Postponed rules outrank most genuinely unsafe rules but no longer jump
// the queue.
const postponedProbability = 0.9

// unsafeEntry is one pending trial in a goal's memoized unsafe queue.
type unsafeEntry struct {
	rule        Rule
	probability float64
	postponed   bool // originally a safe rule, demoted for assigning foreign vars
}

// trial outcome labels for rule_tried events.
const (
	outcomeFailed    = "failed"
	outcomeSucceeded = "succeeded"
	outcomeProven    = "proven"
	outcomePostponed = "postponed"
)

// schedule runs the safe and unsafe trial phases for a normalized goal.
// It returns once a trial succeeds, the queue is exhausted, or a fatal
// error occurs. Success and exhaustion are both nil; the caller inspects
// the goal to decide what happens next.
func (s *Session) schedule(ctx context.Context, g *Goal, iter int64) error {
	if !g.unsafeQueueBuilt {
		postponed, done, err := s.trySafeRules(ctx, g, iter)
		if err != nil || done {
			return err
		}
		s.buildUnsafeQueue(g, postponed)
	}
	return s.tryUnsafeRules(ctx, g, iter)
}

// trySafeRules runs safe rules in priority order. The first success is
// committed immediately, unless the application assigns a unification
// variable introduced elsewhere; such rules are postponed and returned for
// the unsafe queue. done is true when a trial was committed.
func (s *Session) trySafeRules(ctx context.Context, g *Goal, iter int64) (postponed []Rule, done bool, err error) {
	safe := rulesForPhase(s.rules.Selector.Select(g.Obligation), PhaseSafe)
	sort.SliceStable(safe, func(i, j int) bool { return safe[i].Priority < safe[j].Priority })

	resolved := s.tree.ResolvedAssignments(g.ID)

	if s.opts.TreatSafeAsUnsafeWithMVars && hasUnresolvedMetavars(g.Obligation, resolved) {
		// The goal shares variables with sibling branches; committing any
		// safe rule here could fix them prematurely. Demote the lot.
		for _, rule := range safe {
			if _, failed := g.FailedRules[rule.Name]; failed {
				continue
			}
			postponed = append(postponed, rule)
			s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomePostponed, Detail: "goal references unresolved variables"})
		}
		return postponed, false, nil
	}

	actx := ApplyContext{Branch: g.Branch, Resolved: resolved, NewMVar: s.newMVar}
	for _, rule := range safe {
		if _, failed := g.FailedRules[rule.Name]; failed {
			continue
		}
		apps, appErr := s.rules.Executor.Apply(ctx, g.Obligation, rule, actx)
		if appErr != nil {
			s.failRule(g, rule, iter, "execution failed: "+appErr.Error())
			continue
		}
		if len(apps) == 0 {
			s.failRule(g, rule, iter, "")
			continue
		}
		if len(apps) != 1 {
			s.failRule(g, rule, iter, "safe rule produced multiple applications")
			continue
		}
		if assignsForeignVars(&apps[0]) {
			postponed = append(postponed, rule)
			s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomePostponed, Detail: "assigns foreign variables"})
			continue
		}
		proven, commitErr := s.commit(ctx, g, rule, apps, iter)
		if commitErr != nil {
			return nil, false, commitErr
		}
		// A committed safe rule is the goal's final word: safe rules
		// preserve provability, so no alternative trials remain.
		g.unsafeQueueBuilt = true
		s.traceTrial(g, rule, iter, proven)
		return nil, true, nil
	}
	return postponed, false, nil
}

// buildUnsafeQueue merges the goal's postponed safe rules with its unsafe
// rules, ordered by probability descending. Built once per goal; later
// expansion passes resume from the remainder without re-running safe trials.
func (s *Session) buildUnsafeQueue(g *Goal, postponed []Rule) {
	unsafe := rulesForPhase(s.rules.Selector.Select(g.Obligation), PhaseUnsafe)

	entries := make([]unsafeEntry, 0, len(postponed)+len(unsafe))
	for _, rule := range postponed {
		entries = append(entries, unsafeEntry{rule: rule, probability: postponedProbability, postponed: true})
	}
	for _, rule := range unsafe {
		entries = append(entries, unsafeEntry{rule: rule, probability: rule.Probability})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].probability > entries[j].probability })

	g.unsafeQueue = entries
	g.unsafeQueueBuilt = true
}

// tryUnsafeRules pops entries off the goal's unsafe queue until one
// commits. Unconsumed entries stay queued for a later expansion pass.
func (s *Session) tryUnsafeRules(ctx context.Context, g *Goal, iter int64) error {
	resolved := s.tree.ResolvedAssignments(g.ID)
	actx := ApplyContext{Branch: g.Branch, Resolved: resolved, NewMVar: s.newMVar}

	for len(g.unsafeQueue) > 0 {
		e := g.unsafeQueue[0]
		g.unsafeQueue = g.unsafeQueue[1:]

		if _, failed := g.FailedRules[e.rule.Name]; failed {
			continue
		}
		apps, appErr := s.rules.Executor.Apply(ctx, g.Obligation, e.rule, actx)
		if appErr != nil {
			s.failRule(g, e.rule, iter, "execution failed: "+appErr.Error())
			continue
		}
		if len(apps) == 0 {
			s.failRule(g, e.rule, iter, "")
			continue
		}
		if e.postponed && len(apps) != 1 {
			// Postponement does not loosen the safe-rule contract.
			s.failRule(g, e.rule, iter, "safe rule produced multiple applications")
			continue
		}
		proven, commitErr := s.commit(ctx, g, e.rule, apps, iter)
		if commitErr != nil {
			return commitErr
		}
		s.traceTrial(g, e.rule, iter, proven)
		return nil
	}
	return nil
}

// commit materializes the applications of one successful trial: limits are
// checked first, assignments to foreign variables trigger branch
// reconciliation, then rapps and child goals are created and enqueued.
//
// Applications land on a host goal that starts as g. Whenever an
// application's reconciliation forks a branch, the remaining applications
// move to the copied counterpart: in that branch the variables the earlier
// alternative committed are still free, so each alternative resolves them
// independently instead of colliding on one branch.
//
// proven is true when some application closed g itself outright.
func (s *Session) commit(ctx context.Context, g *Goal, rule Rule, apps []Application, iter int64) (proven bool, err error) {
	if err := s.gov.ensureRapps(len(apps)); err != nil {
		return false, err
	}
	childTotal := 0
	for i := range apps {
		childTotal += len(apps[i].Children)
	}
	if err := s.gov.ensureGoals(childTotal); err != nil {
		return false, err
	}

	host := g
	var provenBy NodeID
	closeHost := func() {
		if provenBy == 0 {
			return
		}
		s.tree.MarkGoalProven(host.ID, provenBy, nil)
		s.trace(Event{Kind: EventGoalProven, Iteration: iter, Goal: host.ID, Rapp: provenBy})
		if host == g {
			proven = true
		}
		provenBy = 0
	}

	for i := range apps {
		app := &apps[i]
		if app.Probability <= 0 || app.Probability > 1 {
			return false, &InternalError{Op: "commit", Detail: "application probability outside (0, 1]", Goal: host.ID}
		}
		counterpart, recErr := s.reconcile(ctx, host, app, iter)
		if recErr != nil {
			return false, recErr
		}

		r, addErr := s.tree.AddRapp(rule, app.Combine, host.ID, host.Probability*app.Probability, app.NewVars, app.Assigned)
		if addErr != nil {
			return false, addErr
		}
		s.trace(Event{Kind: EventRappAdded, Iteration: iter, Goal: host.ID, Rapp: r.ID, Rule: rule.Name})

		if len(app.Children) == 0 {
			r.State = RappProven
			if provenBy == 0 {
				provenBy = r.ID
			}
		} else {
			branch := host.Branch
			if app.Memo != nil {
				branch = host.Branch.With(rule.Name, app.Memo)
			}
			for _, child := range app.Children {
				cg, addErr := s.tree.AddGoal(child, r.ID, r.Probability, branch, iter)
				if addErr != nil {
					return false, addErr
				}
				s.enqueueGoal(cg, iter)
				s.trace(Event{Kind: EventGoalAdded, Iteration: iter, Goal: cg.ID, Rapp: r.ID})
			}
		}

		if counterpart != 0 {
			closeHost()
			next, ok := s.tree.Goal(counterpart)
			if !ok {
				return false, &InternalError{Op: "commit", Detail: "missing copied counterpart goal", Goal: counterpart}
			}
			host = next
		}
	}

	closeHost()
	return proven, nil
}

// failRule records a rule failure so the rule is never retried against this
// goal, and emits the trial event.
func (s *Session) failRule(g *Goal, rule Rule, iter int64, detail string) {
	g.FailedRules[rule.Name] = struct{}{}
	s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomeFailed, Detail: detail})
}

func (s *Session) traceTrial(g *Goal, rule Rule, iter int64, proven bool) {
	outcome := outcomeSucceeded
	if proven {
		outcome = outcomeProven
	}
	s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcome})
}

func rulesForPhase(rules []Rule, phase Phase) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Phase == phase {
			out = append(out, r)
		}
	}
	return out
}

// assignsForeignVars reports whether the application resolves a variable it
// did not itself introduce.
func assignsForeignVars(app *Application) bool {
	if len(app.Assigned) == 0 {
		return false
	}
	own := make(map[ir.MVarID]struct{}, len(app.NewVars))
	for _, v := range app.NewVars {
		own[v] = struct{}{}
	}
	for v := range app.Assigned {
		if _, ok := own[v]; !ok {
			return true
		}
	}
	return false
}

// hasUnresolvedMetavars reports whether the obligation references a
// unification variable with no resolution on this branch.
func hasUnresolvedMetavars(ob Obligation, resolved ir.Subst) bool {
	for v := range ob.Metavars() {
		if _, ok := resolved[v]; !ok {
			return true
		}
	}
	return false
}
