// Package rules is the bundled inference-rule library for the propositional
// and existential fragment in internal/ir. It implements the collaborator
// interfaces the search engine consumes: rule selection, rule execution,
// simplification and certificate combination.
//
// Rules come in three phases. Normalization rules rewrite the target toward
// a canonical form (unit laws, definitional unfolding). Safe rules are
// invertible: applying one never loses provability, so the scheduler
// commits to the first that applies. Unsafe rules branch: disjunction
// introduction picks a side, existential introduction defers the witness to
// a fresh metavariable resolved later by unification.
//
// Every builder works on the sequent as seen under the branch's resolved
// substitution, and builds its certificate bottom-up from child
// certificates.
package rules
