package rules

import (
	"fmt"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// RenderCert renders a certificate as a compact nested expression,
// e.g. "and_intro(hyp(0), true_intro)". The rendering is deterministic
// and total over the bundled certificate forms.
func RenderCert(c ir.Cert) string {
	switch x := c.(type) {
	case ir.HypCert:
		return fmt.Sprintf("hyp(%d)", x.Index)
	case ir.TrueIntroCert:
		return "true_intro"
	case ir.AndIntroCert:
		return fmt.Sprintf("and_intro(%s, %s)", RenderCert(x.Left), RenderCert(x.Right))
	case ir.OrLeftCert:
		return fmt.Sprintf("or_left(%s)", RenderCert(x.Proof))
	case ir.OrRightCert:
		return fmt.Sprintf("or_right(%s)", RenderCert(x.Proof))
	case ir.ImpIntroCert:
		return fmt.Sprintf("imp_intro(%s)", RenderCert(x.Body))
	case ir.FalseElimCert:
		return fmt.Sprintf("false_elim(%d)", x.HypIndex)
	case ir.ExistsIntroCert:
		return fmt.Sprintf("exists_intro(%s, %s)", x.Witness.String(), RenderCert(x.Body))
	case ir.NormCert:
		return fmt.Sprintf("norm[%s](%s)", x.Rule, RenderCert(x.Inner))
	default:
		return fmt.Sprintf("%T", c)
	}
}
