package ir

import (
	"fmt"
	"strings"
)

// Formula is a propositional formula over first-order atoms.
type Formula interface {
	isFormula()

	// String renders the formula in concrete syntax (parseable by Parse).
	String() string
}

// True is the always-provable formula.
type True struct{}

// False is the never-provable formula.
type False struct{}

// Atom is a predicate applied to terms. A propositional letter is an Atom
// with no arguments.
type Atom struct {
	Pred string
	Args []Term
}

// And is conjunction.
type And struct {
	Left, Right Formula
}

// Or is disjunction.
type Or struct {
	Left, Right Formula
}

// Implies is implication (right associative in concrete syntax).
type Implies struct {
	Left, Right Formula
}

// Not is negation.
type Not struct {
	Body Formula
}

// Exists is existential quantification over the named bound variable.
type Exists struct {
	Binder string
	Body   Formula
}

func (True) isFormula()    {}
func (False) isFormula()   {}
func (Atom) isFormula()    {}
func (And) isFormula()     {}
func (Or) isFormula()      {}
func (Implies) isFormula() {}
func (Not) isFormula()     {}
func (Exists) isFormula()  {}

func (True) String() string  { return "true" }
func (False) String() string { return "false" }

func (f Atom) String() string {
	if len(f.Args) == 0 {
		return f.Pred
	}
	parts := make([]string, len(f.Args))
	for i, t := range f.Args {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", f.Pred, strings.Join(parts, ", "))
}

func (f And) String() string {
	return fmt.Sprintf("(%s & %s)", f.Left, f.Right)
}

func (f Or) String() string {
	return fmt.Sprintf("(%s | %s)", f.Left, f.Right)
}

func (f Implies) String() string {
	return fmt.Sprintf("(%s -> %s)", f.Left, f.Right)
}

func (f Not) String() string {
	return fmt.Sprintf("!%s", f.Body)
}

func (f Exists) String() string {
	return fmt.Sprintf("(exists %s. %s)", f.Binder, f.Body)
}

// ApplySubst returns f with the substitution applied to every term position.
// The receiver is never mutated.
func ApplySubst(f Formula, s Subst) Formula {
	if len(s) == 0 {
		return f
	}
	switch x := f.(type) {
	case True, False:
		return f
	case Atom:
		args := make([]Term, len(x.Args))
		for i, t := range x.Args {
			args[i] = s.ApplyTerm(t)
		}
		return Atom{Pred: x.Pred, Args: args}
	case And:
		return And{Left: ApplySubst(x.Left, s), Right: ApplySubst(x.Right, s)}
	case Or:
		return Or{Left: ApplySubst(x.Left, s), Right: ApplySubst(x.Right, s)}
	case Implies:
		return Implies{Left: ApplySubst(x.Left, s), Right: ApplySubst(x.Right, s)}
	case Not:
		return Not{Body: ApplySubst(x.Body, s)}
	case Exists:
		return Exists{Binder: x.Binder, Body: ApplySubst(x.Body, s)}
	default:
		return f
	}
}

// Instantiate replaces the named bound variable with the given term.
// Used to open an Exists binder.
func Instantiate(f Formula, name string, with Term) Formula {
	switch x := f.(type) {
	case True, False:
		return f
	case Atom:
		args := make([]Term, len(x.Args))
		for i, t := range x.Args {
			args[i] = substituteBound(t, name, with)
		}
		return Atom{Pred: x.Pred, Args: args}
	case And:
		return And{Left: Instantiate(x.Left, name, with), Right: Instantiate(x.Right, name, with)}
	case Or:
		return Or{Left: Instantiate(x.Left, name, with), Right: Instantiate(x.Right, name, with)}
	case Implies:
		return Implies{Left: Instantiate(x.Left, name, with), Right: Instantiate(x.Right, name, with)}
	case Not:
		return Not{Body: Instantiate(x.Body, name, with)}
	case Exists:
		if x.Binder == name {
			// Inner binder shadows the name.
			return x
		}
		return Exists{Binder: x.Binder, Body: Instantiate(x.Body, name, with)}
	default:
		return f
	}
}

// Metavars collects the metavariable ids occurring in f.
func Metavars(f Formula) map[MVarID]struct{} {
	acc := make(map[MVarID]struct{})
	collectMetavars(f, acc)
	return acc
}

func collectMetavars(f Formula, acc map[MVarID]struct{}) {
	switch x := f.(type) {
	case Atom:
		for _, t := range x.Args {
			termMetavars(t, acc)
		}
	case And:
		collectMetavars(x.Left, acc)
		collectMetavars(x.Right, acc)
	case Or:
		collectMetavars(x.Left, acc)
		collectMetavars(x.Right, acc)
	case Implies:
		collectMetavars(x.Left, acc)
		collectMetavars(x.Right, acc)
	case Not:
		collectMetavars(x.Body, acc)
	case Exists:
		collectMetavars(x.Body, acc)
	}
}

// FormulasEqual reports structural equality.
func FormulasEqual(a, b Formula) bool {
	switch x := a.(type) {
	case True:
		_, ok := b.(True)
		return ok
	case False:
		_, ok := b.(False)
		return ok
	case Atom:
		y, ok := b.(Atom)
		if !ok || x.Pred != y.Pred || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !TermsEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case And:
		y, ok := b.(And)
		return ok && FormulasEqual(x.Left, y.Left) && FormulasEqual(x.Right, y.Right)
	case Or:
		y, ok := b.(Or)
		return ok && FormulasEqual(x.Left, y.Left) && FormulasEqual(x.Right, y.Right)
	case Implies:
		y, ok := b.(Implies)
		return ok && FormulasEqual(x.Left, y.Left) && FormulasEqual(x.Right, y.Right)
	case Not:
		y, ok := b.(Not)
		return ok && FormulasEqual(x.Body, y.Body)
	case Exists:
		y, ok := b.(Exists)
		return ok && x.Binder == y.Binder && FormulasEqual(x.Body, y.Body)
	default:
		return false
	}
}

// MatchFormula attempts a one-sided match of pattern against concrete, binding
// metavariables in pattern. Returns the binding set extending base, or false
// if the shapes differ or a metavariable would need two different values.
// Metavariables in concrete only match themselves.
func MatchFormula(pattern, concrete Formula, base Subst) (Subst, bool) {
	switch p := pattern.(type) {
	case True:
		_, ok := concrete.(True)
		return base, ok
	case False:
		_, ok := concrete.(False)
		return base, ok
	case Atom:
		c, ok := concrete.(Atom)
		if !ok || p.Pred != c.Pred || len(p.Args) != len(c.Args) {
			return nil, false
		}
		s := base
		for i := range p.Args {
			s, ok = matchTerm(p.Args[i], c.Args[i], s)
			if !ok {
				return nil, false
			}
		}
		return s, true
	case And:
		c, ok := concrete.(And)
		if !ok {
			return nil, false
		}
		return matchPair(p.Left, p.Right, c.Left, c.Right, base)
	case Or:
		c, ok := concrete.(Or)
		if !ok {
			return nil, false
		}
		return matchPair(p.Left, p.Right, c.Left, c.Right, base)
	case Implies:
		c, ok := concrete.(Implies)
		if !ok {
			return nil, false
		}
		return matchPair(p.Left, p.Right, c.Left, c.Right, base)
	case Not:
		c, ok := concrete.(Not)
		if !ok {
			return nil, false
		}
		return MatchFormula(p.Body, c.Body, base)
	case Exists:
		c, ok := concrete.(Exists)
		if !ok || p.Binder != c.Binder {
			return nil, false
		}
		return MatchFormula(p.Body, c.Body, base)
	default:
		return nil, false
	}
}

func matchPair(pl, pr, cl, cr Formula, base Subst) (Subst, bool) {
	s, ok := MatchFormula(pl, cl, base)
	if !ok {
		return nil, false
	}
	return MatchFormula(pr, cr, s)
}

func matchTerm(pattern, concrete Term, base Subst) (Subst, bool) {
	if mv, ok := pattern.(MVar); ok {
		if prev, bound := base[mv.ID]; bound {
			if TermsEqual(prev, concrete) {
				return base, true
			}
			return nil, false
		}
		// A metavariable never matches itself away.
		if cmv, sameVar := concrete.(MVar); sameVar && cmv.ID == mv.ID {
			return base, true
		}
		if _, isMVar := concrete.(MVar); isMVar {
			return nil, false
		}
		out := base.Clone()
		if out == nil {
			out = make(Subst, 1)
		}
		out[mv.ID] = concrete
		return out, true
	}
	if TermsEqual(pattern, concrete) {
		return base, true
	}
	return nil, false
}
