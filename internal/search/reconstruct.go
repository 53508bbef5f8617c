package search

import (
	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// reconstruct assembles the final certificate after the root goal is
// proven. It walks the proven spine of the tree, combines child
// certificates bottom-up, then closes the result with every metavariable
// assignment collected along the spine. Any inconsistency found here is an
// engine defect: the tree invariants guarantee a proven root has a complete
// proven spine.
func (s *Session) reconstruct() (Certificate, error) {
	cert, assign, err := s.reconstructGoal(s.tree.Root())
	if err != nil {
		return nil, err
	}
	closed, err := cert.Close(assign)
	if err != nil {
		return nil, &InternalError{Op: "reconstruct", Detail: "certificate failed to close: " + err.Error(), Goal: s.tree.Root()}
	}
	return closed, nil
}

func (s *Session) reconstructGoal(id NodeID) (Certificate, ir.Subst, error) {
	g, ok := s.tree.Goal(id)
	if !ok {
		return nil, nil, &InternalError{Op: "reconstruct", Detail: "unknown goal", Goal: id}
	}

	switch g.Status {
	case StatusProvenByNorm:
		if g.Cert == nil {
			return nil, nil, &InternalError{Op: "reconstruct", Detail: "normalization proof without certificate", Goal: id}
		}
		return g.Cert, nil, nil

	case StatusProvenByRapp:
		r, ok := s.tree.Rapp(g.ProvenBy)
		if !ok || r.State != RappProven {
			return nil, nil, &InternalError{Op: "reconstruct", Detail: "missing proven rule application", Goal: id, Rapp: g.ProvenBy}
		}
		assign := r.Assignments.Clone()
		certs := make([]Certificate, 0, len(r.Children))
		for _, child := range r.Children {
			c, sub, err := s.reconstructGoal(child)
			if err != nil {
				return nil, nil, err
			}
			certs = append(certs, c)
			assign = assign.Merge(sub)
		}
		if r.Combine == nil {
			return nil, nil, &InternalError{Op: "reconstruct", Detail: "rule application without combiner", Rapp: r.ID}
		}
		cert, err := r.Combine(certs)
		if err != nil {
			return nil, nil, &InternalError{Op: "reconstruct", Detail: "certificate assembly failed: " + err.Error(), Rapp: r.ID}
		}
		return cert, assign, nil

	default:
		return nil, nil, &InternalError{Op: "reconstruct", Detail: "unproven goal on proven spine", Goal: id}
	}
}
