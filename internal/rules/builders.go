package rules

import (
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// rewrite is the shape shared by all target rewrites: one application, one
// child goal, certificate lifted through a normalization marker.
func rewrite(rule string, seq ir.Sequent, target ir.Formula) []search.Application {
	return []search.Application{{
		Children: []search.Obligation{Goal{Seq: seq.WithTarget(target)}},
		Combine:  wrapNorm(rule),
	}}
}

// normTargetTrue closes a goal whose target already is `true`.
func normTargetTrue(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	if _, ok := seq.Target.(ir.True); !ok {
		return nil, nil
	}
	return []search.Application{{Combine: leafCert(ir.TrueIntroCert{})}}, nil
}

// normAndUnit strips a `true` conjunct from the target.
func normAndUnit(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	and, ok := seq.Target.(ir.And)
	if !ok {
		return nil, nil
	}
	if _, t := and.Left.(ir.True); t {
		return rewrite("norm_and_unit", seq, and.Right), nil
	}
	if _, t := and.Right.(ir.True); t {
		return rewrite("norm_and_unit", seq, and.Left), nil
	}
	return nil, nil
}

// normOrUnit strips a `false` disjunct from the target.
func normOrUnit(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	or, ok := seq.Target.(ir.Or)
	if !ok {
		return nil, nil
	}
	if _, f := or.Left.(ir.False); f {
		return rewrite("norm_or_unit", seq, or.Right), nil
	}
	if _, f := or.Right.(ir.False); f {
		return rewrite("norm_or_unit", seq, or.Left), nil
	}
	return nil, nil
}

// normNotDef unfolds negation into an implication of `false`.
func normNotDef(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	not, ok := seq.Target.(ir.Not)
	if !ok {
		return nil, nil
	}
	return rewrite("norm_not_def", seq, ir.Implies{Left: not.Body, Right: ir.False{}}), nil
}

// applyAssumption discharges a target appearing verbatim among the
// hypotheses.
func applyAssumption(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	for i, h := range seq.Hyps {
		if ir.FormulasEqual(h, seq.Target) {
			return []search.Application{{Combine: leafCert(ir.HypCert{Index: i})}}, nil
		}
	}
	return nil, nil
}

func applyTrueIntro(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	if _, ok := seq.Target.(ir.True); !ok {
		return nil, nil
	}
	return []search.Application{{Combine: leafCert(ir.TrueIntroCert{})}}, nil
}

// applyFalseElim discharges any target from a `false` hypothesis.
func applyFalseElim(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	for i, h := range seq.Hyps {
		if _, ok := h.(ir.False); ok {
			return []search.Application{{Combine: leafCert(ir.FalseElimCert{HypIndex: i})}}, nil
		}
	}
	return nil, nil
}

// applyAndIntro splits a conjunction into both sides.
func applyAndIntro(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	and, ok := seq.Target.(ir.And)
	if !ok {
		return nil, nil
	}
	return []search.Application{{
		Children: []search.Obligation{
			Goal{Seq: seq.WithTarget(and.Left)},
			Goal{Seq: seq.WithTarget(and.Right)},
		},
		Combine: func(children []search.Certificate) (search.Certificate, error) {
			if len(children) != 2 {
				return nil, fmt.Errorf("and_intro combined with %d child certificates", len(children))
			}
			left, err := certOf(children[0])
			if err != nil {
				return nil, err
			}
			right, err := certOf(children[1])
			if err != nil {
				return nil, err
			}
			return Proof{Cert: ir.AndIntroCert{Left: left, Right: right}}, nil
		},
	}}, nil
}

// applyImpIntro assumes the antecedent and proves the consequent.
func applyImpIntro(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	imp, ok := seq.Target.(ir.Implies)
	if !ok {
		return nil, nil
	}
	return []search.Application{{
		Children: []search.Obligation{Goal{Seq: seq.WithHyp(imp.Left).WithTarget(imp.Right)}},
		Combine: func(children []search.Certificate) (search.Certificate, error) {
			if len(children) != 1 {
				return nil, fmt.Errorf("imp_intro combined with %d child certificates", len(children))
			}
			body, err := certOf(children[0])
			if err != nil {
				return nil, err
			}
			return Proof{Cert: ir.ImpIntroCert{Body: body}}, nil
		},
	}}, nil
}

// applyAssumptionUnify matches a target containing metavariables against
// each hypothesis. A match assigns the target's variables, which belong to
// ancestor rule applications, so the engine postpones and reconciles this
// rule like an unsafe one.
func applyAssumptionUnify(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	if len(ir.Metavars(seq.Target)) == 0 {
		return nil, nil
	}
	for i, h := range seq.Hyps {
		sub, ok := ir.MatchFormula(seq.Target, h, nil)
		if !ok || len(sub) == 0 {
			continue
		}
		return []search.Application{{
			Assigned: sub,
			Combine:  leafCert(ir.HypCert{Index: i}),
		}}, nil
	}
	return nil, nil
}

func applyOrLeft(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	return applyOrSide(seq, true)
}

func applyOrRight(seq ir.Sequent, _ search.ApplyContext) ([]search.Application, error) {
	return applyOrSide(seq, false)
}

func applyOrSide(seq ir.Sequent, left bool) ([]search.Application, error) {
	or, ok := seq.Target.(ir.Or)
	if !ok {
		return nil, nil
	}
	target := or.Right
	if left {
		target = or.Left
	}
	return []search.Application{{
		Children: []search.Obligation{Goal{Seq: seq.WithTarget(target)}},
		Combine: func(children []search.Certificate) (search.Certificate, error) {
			if len(children) != 1 {
				return nil, fmt.Errorf("or introduction combined with %d child certificates", len(children))
			}
			proof, err := certOf(children[0])
			if err != nil {
				return nil, err
			}
			if left {
				return Proof{Cert: ir.OrLeftCert{Proof: proof}}, nil
			}
			return Proof{Cert: ir.OrRightCert{Proof: proof}}, nil
		},
	}}, nil
}

// applyExistsIntro defers the witness to a fresh metavariable; unification
// against a hypothesis resolves it later and the certificate closes with
// the concrete witness.
func applyExistsIntro(seq ir.Sequent, actx search.ApplyContext) ([]search.Application, error) {
	ex, ok := seq.Target.(ir.Exists)
	if !ok {
		return nil, nil
	}
	v := actx.NewMVar()
	body := ir.Instantiate(ex.Body, ex.Binder, ir.MVar{ID: v})
	return []search.Application{{
		Children: []search.Obligation{Goal{Seq: seq.WithTarget(body)}},
		NewVars:  []ir.MVarID{v},
		Combine: func(children []search.Certificate) (search.Certificate, error) {
			if len(children) != 1 {
				return nil, fmt.Errorf("exists_intro combined with %d child certificates", len(children))
			}
			bodyCert, err := certOf(children[0])
			if err != nil {
				return nil, err
			}
			return Proof{Cert: ir.ExistsIntroCert{Witness: ir.MVar{ID: v}, Body: bodyCert}}, nil
		},
	}}, nil
}
