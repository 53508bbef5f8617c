package search

import (
	"context"
	"sort"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// normStepResult tags one pass over a group of norm rules.
type normStepResult int

const (
	normNoChange normStepResult = iota
	normReplaced
	normProved
)

// normalize drives a goal to its normal form: pre-simplification rules,
// the simplifier, then post-simplification rules, repeated until a full
// round leaves the obligation unchanged. The loop is bounded by
// MaxNormIterations; hitting the bound is fatal, since it means the rule
// set rewrites in circles.
//
// Returns true when normalization proved the goal outright; the proof has
// already been recorded and propagated.
func (s *Session) normalize(ctx context.Context, g *Goal, iter int64) (bool, error) {
	resolved := s.tree.ResolvedAssignments(g.ID)
	actx := ApplyContext{Branch: g.Branch, Resolved: resolved, NewMVar: s.newMVar}

	ob := g.Obligation
	// Rewrite certificates stack outermost-first: wrappers[0] lifts a proof
	// of the first rewrite's result back to the original goal.
	var wrappers []CombineFunc

	for i := 0; ; i++ {
		if i >= s.opts.MaxNormIterations {
			return false, &LimitError{Limit: "maxNormIterations", Max: s.opts.MaxNormIterations, Value: i + 1}
		}

		// Re-select every round: rewrites change which rules match.
		norm := rulesForPhase(s.rules.Selector.Select(ob), PhaseNorm)
		sort.SliceStable(norm, func(a, b int) bool { return norm[a].Priority < norm[b].Priority })
		var pre, post []Rule
		for _, r := range norm {
			if r.Priority < 0 {
				pre = append(pre, r)
			} else {
				post = append(post, r)
			}
		}

		step, next, err := s.normStep(ctx, g, pre, ob, actx, &wrappers, iter)
		if err != nil {
			return false, err
		}
		if step == normProved {
			return true, nil
		}
		if step == normReplaced {
			ob = next
			continue
		}

		if s.opts.EnableSimplification && s.rules.Simplifier != nil {
			done, next, simplified, err := s.simplifyStep(ctx, g, ob, resolved, &wrappers, iter)
			if err != nil {
				return false, err
			}
			if done {
				return true, nil
			}
			if simplified {
				ob = next
				continue
			}
		}

		step, next, err = s.normStep(ctx, g, post, ob, actx, &wrappers, iter)
		if err != nil {
			return false, err
		}
		if step == normProved {
			return true, nil
		}
		if step == normReplaced {
			ob = next
			continue
		}

		break
	}

	g.Obligation = ob
	g.NormState = NormDone
	return false, nil
}

// normStep tries each rule in order against the current obligation and
// acts on the first success. Norm rules must be deterministic rewrites:
// exactly one application with at most one child and no variable effects.
// Malformed outputs are skipped. Failures are not memoized: a rule that
// did not apply to one form may apply after further rewriting.
func (s *Session) normStep(ctx context.Context, g *Goal, rules []Rule, ob Obligation, actx ApplyContext, wrappers *[]CombineFunc, iter int64) (normStepResult, Obligation, error) {
	for _, rule := range rules {
		apps, err := s.rules.Executor.Apply(ctx, ob, rule, actx)
		if err != nil {
			s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomeFailed, Detail: "execution failed: " + err.Error()})
			continue
		}
		if len(apps) == 0 {
			continue
		}
		app := &apps[0]
		if len(apps) != 1 || len(app.Children) > 1 || len(app.NewVars) > 0 || len(app.Assigned) > 0 {
			s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomeFailed, Detail: "norm rule must be a plain rewrite"})
			continue
		}

		if len(app.Children) == 0 {
			cert, err := s.finishNormCert(app.Combine, nil, *wrappers)
			if err != nil {
				return 0, nil, &InternalError{Op: "normalize", Detail: "certificate assembly failed: " + err.Error(), Goal: g.ID}
			}
			s.tree.MarkGoalProven(g.ID, 0, cert)
			s.trace(Event{Kind: EventGoalProven, Iteration: iter, Goal: g.ID, Rule: rule.Name, Detail: "proved by normalization"})
			return normProved, nil, nil
		}

		if app.Combine != nil {
			*wrappers = append(*wrappers, app.Combine)
		}
		s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: rule.Name, Outcome: outcomeSucceeded, Detail: "rewrote goal"})
		return normReplaced, app.Children[0], nil
	}
	return normNoChange, nil, nil
}

// simplifyStep runs the simplifier once. A solved result that still
// references unresolved variables is ignored: simplification must not
// commit shared variables, so such proofs wait for a later pass.
func (s *Session) simplifyStep(ctx context.Context, g *Goal, ob Obligation, resolved ir.Subst, wrappers *[]CombineFunc, iter int64) (done bool, next Obligation, simplified bool, err error) {
	res, err := s.rules.Simplifier.Simplify(ctx, ob, resolved)
	if err != nil {
		s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: "simp", Outcome: outcomeFailed, Detail: err.Error()})
		return false, nil, false, nil
	}

	switch res.Outcome {
	case SimpSolved:
		if hasUnresolvedMetavars(ob, resolved) {
			return false, nil, false, nil
		}
		cert, certErr := s.finishNormCert(nil, res.Cert, *wrappers)
		if certErr != nil {
			return false, nil, false, &InternalError{Op: "normalize", Detail: "certificate assembly failed: " + certErr.Error(), Goal: g.ID}
		}
		s.tree.MarkGoalProven(g.ID, 0, cert)
		s.trace(Event{Kind: EventGoalProven, Iteration: iter, Goal: g.ID, Rule: "simp", Detail: "proved by simplification"})
		return true, nil, false, nil
	case SimpSimplified:
		if res.Wrap != nil {
			*wrappers = append(*wrappers, res.Wrap)
		}
		s.trace(Event{Kind: EventRuleTried, Iteration: iter, Goal: g.ID, Rule: "simp", Outcome: outcomeSucceeded, Detail: "rewrote goal"})
		return false, res.Goal, true, nil
	default:
		return false, nil, false, nil
	}
}

// finishNormCert builds the certificate for a goal proved mid-pipeline:
// the proving step's own certificate wrapped in the accumulated rewrite
// lifts, innermost last.
func (s *Session) finishNormCert(combine CombineFunc, cert Certificate, wrappers []CombineFunc) (Certificate, error) {
	var err error
	if combine != nil {
		cert, err = combine(nil)
		if err != nil {
			return nil, err
		}
	}
	for i := len(wrappers) - 1; i >= 0; i-- {
		cert, err = wrappers[i]([]Certificate{cert})
		if err != nil {
			return nil, err
		}
	}
	return cert, nil
}
