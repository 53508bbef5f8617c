package ir

// Cert is a proof certificate: evidence that a sequent holds, combined
// bottom-up from child certificates by rule-specific combinators.
//
// A certificate is closed when no metavariable occurs in any witness term.
// Only closed certificates are valid final outputs of a search.
type Cert interface {
	isCert()
}

// HypCert discharges a target that appears verbatim among the hypotheses.
type HypCert struct {
	Index int // position in Sequent.Hyps
}

// TrueIntroCert proves the target `true`.
type TrueIntroCert struct{}

// AndIntroCert proves a conjunction from proofs of both sides.
type AndIntroCert struct {
	Left, Right Cert
}

// OrLeftCert proves a disjunction from a proof of its left side.
type OrLeftCert struct {
	Proof Cert
}

// OrRightCert proves a disjunction from a proof of its right side.
type OrRightCert struct {
	Proof Cert
}

// ImpIntroCert proves an implication by assuming the antecedent.
type ImpIntroCert struct {
	Body Cert
}

// FalseElimCert discharges any target from a `false` hypothesis.
type FalseElimCert struct {
	HypIndex int
}

// ExistsIntroCert proves an existential with an explicit witness.
type ExistsIntroCert struct {
	Witness Term
	Body    Cert
}

// NormCert records that the proven sequent arose from the named
// normalization or simplification rewrite of the original obligation.
type NormCert struct {
	Rule  string
	Inner Cert
}

func (HypCert) isCert()         {}
func (TrueIntroCert) isCert()   {}
func (AndIntroCert) isCert()    {}
func (OrLeftCert) isCert()      {}
func (OrRightCert) isCert()     {}
func (ImpIntroCert) isCert()    {}
func (FalseElimCert) isCert()   {}
func (ExistsIntroCert) isCert() {}
func (NormCert) isCert()        {}

// CertMetavars collects metavariable ids occurring in witness terms.
// A non-empty result means the certificate is not closed.
func CertMetavars(c Cert) map[MVarID]struct{} {
	acc := make(map[MVarID]struct{})
	collectCertMetavars(c, acc)
	return acc
}

func collectCertMetavars(c Cert, acc map[MVarID]struct{}) {
	switch x := c.(type) {
	case AndIntroCert:
		collectCertMetavars(x.Left, acc)
		collectCertMetavars(x.Right, acc)
	case OrLeftCert:
		collectCertMetavars(x.Proof, acc)
	case OrRightCert:
		collectCertMetavars(x.Proof, acc)
	case ImpIntroCert:
		collectCertMetavars(x.Body, acc)
	case ExistsIntroCert:
		termMetavars(x.Witness, acc)
		collectCertMetavars(x.Body, acc)
	case NormCert:
		collectCertMetavars(x.Inner, acc)
	}
}

// ApplyCertSubst applies a substitution to every witness term in the
// certificate, closing metavariable placeholders that have been resolved.
func ApplyCertSubst(c Cert, s Subst) Cert {
	if len(s) == 0 {
		return c
	}
	switch x := c.(type) {
	case AndIntroCert:
		return AndIntroCert{Left: ApplyCertSubst(x.Left, s), Right: ApplyCertSubst(x.Right, s)}
	case OrLeftCert:
		return OrLeftCert{Proof: ApplyCertSubst(x.Proof, s)}
	case OrRightCert:
		return OrRightCert{Proof: ApplyCertSubst(x.Proof, s)}
	case ImpIntroCert:
		return ImpIntroCert{Body: ApplyCertSubst(x.Body, s)}
	case ExistsIntroCert:
		return ExistsIntroCert{Witness: s.ApplyTerm(x.Witness), Body: ApplyCertSubst(x.Body, s)}
	case NormCert:
		return NormCert{Rule: x.Rule, Inner: ApplyCertSubst(x.Inner, s)}
	default:
		return c
	}
}
