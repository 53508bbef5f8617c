package ir

import (
	"fmt"
	"strings"
)

// Sequent is a proof obligation: hypotheses entail the target.
// Sequents are values; all transformations return fresh sequents.
type Sequent struct {
	Hyps   []Formula
	Target Formula
}

// NewSequent builds a sequent from hypotheses and a target.
func NewSequent(target Formula, hyps ...Formula) Sequent {
	return Sequent{Hyps: hyps, Target: target}
}

func (s Sequent) String() string {
	if len(s.Hyps) == 0 {
		return fmt.Sprintf("|- %s", s.Target)
	}
	parts := make([]string, len(s.Hyps))
	for i, h := range s.Hyps {
		parts[i] = h.String()
	}
	return fmt.Sprintf("%s |- %s", strings.Join(parts, ", "), s.Target)
}

// Apply returns the sequent with the substitution applied to every formula.
func (s Sequent) Apply(sub Subst) Sequent {
	if len(sub) == 0 {
		return s
	}
	hyps := make([]Formula, len(s.Hyps))
	for i, h := range s.Hyps {
		hyps[i] = ApplySubst(h, sub)
	}
	return Sequent{Hyps: hyps, Target: ApplySubst(s.Target, sub)}
}

// WithTarget returns a copy of the sequent with a different target.
func (s Sequent) WithTarget(target Formula) Sequent {
	hyps := make([]Formula, len(s.Hyps))
	copy(hyps, s.Hyps)
	return Sequent{Hyps: hyps, Target: target}
}

// WithHyp returns a copy of the sequent with an extra hypothesis appended.
func (s Sequent) WithHyp(h Formula) Sequent {
	hyps := make([]Formula, 0, len(s.Hyps)+1)
	hyps = append(hyps, s.Hyps...)
	hyps = append(hyps, h)
	return Sequent{Hyps: hyps, Target: s.Target}
}

// Metavars collects the metavariable ids occurring anywhere in the sequent.
func (s Sequent) Metavars() map[MVarID]struct{} {
	acc := make(map[MVarID]struct{})
	for _, h := range s.Hyps {
		collectMetavars(h, acc)
	}
	collectMetavars(s.Target, acc)
	return acc
}

// Equal reports structural equality of two sequents.
func (s Sequent) Equal(other Sequent) bool {
	if len(s.Hyps) != len(other.Hyps) {
		return false
	}
	for i := range s.Hyps {
		if !FormulasEqual(s.Hyps[i], other.Hyps[i]) {
			return false
		}
	}
	return FormulasEqual(s.Target, other.Target)
}
