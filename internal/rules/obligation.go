package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// Goal adapts a sequent to the engine's obligation interface.
type Goal struct {
	Seq ir.Sequent
}

func (g Goal) String() string { return g.Seq.String() }

func (g Goal) Metavars() map[ir.MVarID]struct{} { return g.Seq.Metavars() }

// Proof adapts a certificate to the engine's interface. Closing applies the
// collected metavariable assignments to every witness and rejects
// certificates that still mention unresolved variables.
type Proof struct {
	Cert ir.Cert
}

func (p Proof) Close(assign ir.Subst) (search.Certificate, error) {
	closed := ir.ApplyCertSubst(p.Cert, assign)
	if open := ir.CertMetavars(closed); len(open) > 0 {
		ids := make([]ir.MVarID, 0, len(open))
		for v := range open {
			ids = append(ids, v)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		names := make([]string, len(ids))
		for i, v := range ids {
			names[i] = fmt.Sprintf("?m%d", v)
		}
		return nil, fmt.Errorf("unresolved witnesses: %s", strings.Join(names, ", "))
	}
	return Proof{Cert: closed}, nil
}

// certOf unwraps a child certificate produced by this library.
func certOf(c search.Certificate) (ir.Cert, error) {
	p, ok := c.(Proof)
	if !ok {
		return nil, fmt.Errorf("certificate %T does not belong to this rule library", c)
	}
	return p.Cert, nil
}

// leafCert is the combiner for applications without child goals.
func leafCert(c ir.Cert) search.CombineFunc {
	return func(children []search.Certificate) (search.Certificate, error) {
		if len(children) != 0 {
			return nil, fmt.Errorf("leaf rule combined with %d child certificates", len(children))
		}
		return Proof{Cert: c}, nil
	}
}

// wrapNorm lifts the certificate of a rewritten goal back to the original
// through a normalization marker.
func wrapNorm(rule string) search.CombineFunc {
	return func(children []search.Certificate) (search.Certificate, error) {
		if len(children) != 1 {
			return nil, fmt.Errorf("rewrite %s combined with %d child certificates", rule, len(children))
		}
		inner, err := certOf(children[0])
		if err != nil {
			return nil, err
		}
		return Proof{Cert: ir.NormCert{Rule: rule, Inner: inner}}, nil
	}
}
