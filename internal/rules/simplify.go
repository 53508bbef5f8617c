package rules

import (
	"context"
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// UnitSimplifier rewrites the target bottom-up with the unit laws of the
// connectives. It solves a goal outright when the target collapses to
// `true`, and otherwise hands the engine a strictly simpler target.
type UnitSimplifier struct{}

func (UnitSimplifier) Simplify(_ context.Context, goal search.Obligation, resolved ir.Subst) (search.SimplifyResult, error) {
	g, ok := goal.(Goal)
	if !ok {
		return search.SimplifyResult{}, fmt.Errorf("obligation %T is not a sequent goal", goal)
	}
	seq := g.Seq.Apply(resolved)
	target := simplifyFormula(seq.Target)
	if ir.FormulasEqual(target, seq.Target) {
		return search.SimplifyResult{Outcome: search.SimpUnchanged}, nil
	}
	if _, isTrue := target.(ir.True); isTrue {
		return search.SimplifyResult{
			Outcome: search.SimpSolved,
			Cert:    Proof{Cert: ir.NormCert{Rule: "simp", Inner: ir.TrueIntroCert{}}},
		}, nil
	}
	return search.SimplifyResult{
		Outcome: search.SimpSimplified,
		Goal:    Goal{Seq: seq.WithTarget(target)},
		Wrap:    wrapNorm("simp"),
	}, nil
}

func simplifyFormula(f ir.Formula) ir.Formula {
	switch x := f.(type) {
	case ir.And:
		left, right := simplifyFormula(x.Left), simplifyFormula(x.Right)
		if isFalse(left) || isFalse(right) {
			return ir.False{}
		}
		if isTrue(left) {
			return right
		}
		if isTrue(right) {
			return left
		}
		return ir.And{Left: left, Right: right}
	case ir.Or:
		left, right := simplifyFormula(x.Left), simplifyFormula(x.Right)
		if isTrue(left) || isTrue(right) {
			return ir.True{}
		}
		if isFalse(left) {
			return right
		}
		if isFalse(right) {
			return left
		}
		return ir.Or{Left: left, Right: right}
	case ir.Implies:
		left, right := simplifyFormula(x.Left), simplifyFormula(x.Right)
		if isFalse(left) || isTrue(right) {
			return ir.True{}
		}
		if isTrue(left) {
			return right
		}
		return ir.Implies{Left: left, Right: right}
	case ir.Not:
		body := simplifyFormula(x.Body)
		if isTrue(body) {
			return ir.False{}
		}
		if isFalse(body) {
			return ir.True{}
		}
		return ir.Not{Body: body}
	case ir.Exists:
		body := simplifyFormula(x.Body)
		// The domain is assumed nonempty, so a binder over a closed truth
		// collapses.
		if isTrue(body) {
			return ir.True{}
		}
		return ir.Exists{Binder: x.Binder, Body: body}
	default:
		return f
	}
}

func isTrue(f ir.Formula) bool {
	_, ok := f.(ir.True)
	return ok
}

func isFalse(f ir.Formula) bool {
	_, ok := f.(ir.False)
	return ok
}
