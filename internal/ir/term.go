package ir

import (
	"fmt"
	"sort"
)

// MVarID identifies a metavariable. Ids are minted by the search session's
// allocator and are unique within one search run.
type MVarID int64

// Term is a first-order term: a constant, a variable bound by an enclosing
// Exists, or a metavariable awaiting assignment.
type Term interface {
	isTerm()

	// String renders the term in concrete syntax.
	String() string
}

// Const is a named constant symbol.
type Const struct {
	Name string
}

// Bound is a variable bound by an enclosing Exists binder.
// It only occurs underneath the binder that introduces its name.
type Bound struct {
	Name string
}

// MVar is a metavariable placeholder.
type MVar struct {
	ID MVarID
}

func (Const) isTerm() {}
func (Bound) isTerm() {}
func (MVar) isTerm()  {}

func (t Const) String() string { return t.Name }
func (t Bound) String() string { return t.Name }
func (t MVar) String() string  { return fmt.Sprintf("?m%d", t.ID) }

// Subst maps metavariables to terms. The zero value is a valid empty
// substitution.
type Subst map[MVarID]Term

// Clone returns an independent copy of the substitution.
func (s Subst) Clone() Subst {
	if s == nil {
		return nil
	}
	out := make(Subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new substitution containing the entries of s overlaid with
// the entries of other. Neither input is mutated.
func (s Subst) Merge(other Subst) Subst {
	out := make(Subst, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// IDs returns the assigned metavariable ids in ascending order.
func (s Subst) IDs() []MVarID {
	ids := make([]MVarID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ApplyTerm applies the substitution to a term. Assignments are applied
// repeatedly until a fixpoint so chained assignments (?a := ?b, ?b := c)
// resolve fully.
func (s Subst) ApplyTerm(t Term) Term {
	for {
		mv, ok := t.(MVar)
		if !ok {
			return t
		}
		repl, ok := s[mv.ID]
		if !ok {
			return t
		}
		t = repl
	}
}

// substituteBound replaces occurrences of the named bound variable with the
// given term. Used when instantiating an Exists binder.
func substituteBound(t Term, name string, with Term) Term {
	if b, ok := t.(Bound); ok && b.Name == name {
		return with
	}
	return t
}

// termMetavars appends the metavariable ids occurring in t to acc.
func termMetavars(t Term, acc map[MVarID]struct{}) {
	if mv, ok := t.(MVar); ok {
		acc[mv.ID] = struct{}{}
	}
}

// TermsEqual reports structural equality of two terms.
func TermsEqual(a, b Term) bool {
	switch x := a.(type) {
	case Const:
		y, ok := b.(Const)
		return ok && x.Name == y.Name
	case Bound:
		y, ok := b.(Bound)
		return ok && x.Name == y.Name
	case MVar:
		y, ok := b.(MVar)
		return ok && x.ID == y.ID
	default:
		return false
	}
}
