package rules

import (
	"context"
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// Spec configures one rule of a library: which builder, in which phase, at
// which priority or probability. Rule sets compiled from CUE produce these.
type Spec struct {
	Name        string
	Phase       search.Phase
	Priority    int
	Probability float64
}

// builder produces the applications of one rule against a sequent already
// resolved under the branch substitution.
type builder func(seq ir.Sequent, actx search.ApplyContext) ([]search.Application, error)

// builders is the registry of rule implementations addressable from specs.
var builders = map[string]builder{
	"norm_target_true": normTargetTrue,
	"norm_and_unit":    normAndUnit,
	"norm_or_unit":     normOrUnit,
	"norm_not_def":     normNotDef,
	"assumption":       applyAssumption,
	"true_intro":       applyTrueIntro,
	"false_elim":       applyFalseElim,
	"and_intro":        applyAndIntro,
	"imp_intro":        applyImpIntro,
	"assumption_unify": applyAssumptionUnify,
	"or_left":          applyOrLeft,
	"or_right":         applyOrRight,
	"exists_intro":     applyExistsIntro,
}

// Known reports whether a rule name exists in the builder registry.
func Known(name string) bool {
	_, ok := builders[name]
	return ok
}

// Library is a configured set of rules implementing the engine's selector
// and executor interfaces. Libraries are immutable after construction and
// safe for reuse across searches.
type Library struct {
	rules    []search.Rule
	builders map[string]builder
}

// New builds a library from specs, resolving each name in the builder
// registry.
func New(specs []Spec) (*Library, error) {
	l := &Library{builders: make(map[string]builder, len(specs))}
	for _, sp := range specs {
		b, ok := builders[sp.Name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", sp.Name)
		}
		if _, dup := l.builders[sp.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", sp.Name)
		}
		switch sp.Phase {
		case search.PhaseNorm, search.PhaseSafe:
		case search.PhaseUnsafe:
			if sp.Probability <= 0 || sp.Probability > 1 {
				return nil, fmt.Errorf("rule %q: unsafe probability must be in (0, 1], got %g", sp.Name, sp.Probability)
			}
		default:
			return nil, fmt.Errorf("rule %q: unknown phase %d", sp.Name, sp.Phase)
		}
		l.rules = append(l.rules, search.Rule{
			Name:        sp.Name,
			Phase:       sp.Phase,
			Priority:    sp.Priority,
			Probability: sp.Probability,
		})
		l.builders[sp.Name] = b
	}
	return l, nil
}

// DefaultSpecs is the standard configuration of the bundled rules.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "norm_target_true", Phase: search.PhaseNorm, Priority: -30},
		{Name: "norm_and_unit", Phase: search.PhaseNorm, Priority: -20},
		{Name: "norm_or_unit", Phase: search.PhaseNorm, Priority: -10},
		{Name: "norm_not_def", Phase: search.PhaseNorm, Priority: 10},
		{Name: "assumption", Phase: search.PhaseSafe, Priority: 10},
		{Name: "true_intro", Phase: search.PhaseSafe, Priority: 20},
		{Name: "false_elim", Phase: search.PhaseSafe, Priority: 30},
		{Name: "and_intro", Phase: search.PhaseSafe, Priority: 40},
		{Name: "imp_intro", Phase: search.PhaseSafe, Priority: 50},
		{Name: "assumption_unify", Phase: search.PhaseSafe, Priority: 60},
		{Name: "exists_intro", Phase: search.PhaseUnsafe, Probability: 0.6},
		{Name: "or_left", Phase: search.PhaseUnsafe, Probability: 0.55},
		{Name: "or_right", Phase: search.PhaseUnsafe, Probability: 0.45},
	}
}

// Default returns the library with the standard rule configuration.
func Default() *Library {
	l, err := New(DefaultSpecs())
	if err != nil {
		// The default specs reference only registered builders.
		panic(err)
	}
	return l
}

// NewRuleSet bundles the library with the unit simplifier for a search.
func NewRuleSet(l *Library) search.RuleSet {
	return search.RuleSet{Selector: l, Executor: l, Simplifier: UnitSimplifier{}}
}

// Select returns the configured rules. Applicability is decided in Apply;
// selection only fixes ordering inputs for the scheduler.
func (l *Library) Select(search.Obligation) []search.Rule {
	out := make([]search.Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Apply runs the named rule's builder against the goal's sequent as seen
// under the branch's resolved substitution.
func (l *Library) Apply(_ context.Context, goal search.Obligation, rule search.Rule, actx search.ApplyContext) ([]search.Application, error) {
	g, ok := goal.(Goal)
	if !ok {
		return nil, fmt.Errorf("obligation %T is not a sequent goal", goal)
	}
	b, ok := l.builders[rule.Name]
	if !ok {
		return nil, fmt.Errorf("rule %q is not part of this library", rule.Name)
	}
	apps, err := b(g.Seq.Apply(actx.Resolved), actx)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].Probability == 0 {
			if rule.Phase == search.PhaseUnsafe {
				apps[i].Probability = rule.Probability
			} else {
				apps[i].Probability = 1.0
			}
		}
	}
	return apps, nil
}

// Rules returns the configured rule descriptors, for diagnostics.
func (l *Library) Rules() []search.Rule {
	out := make([]search.Rule, len(l.rules))
	copy(out, l.rules)
	return out
}
