// Package ir defines the intermediate representation shared by the search
// engine's bundled logic domain: first-order terms with metavariables,
// propositional formulas with an existential binder, sequent-shaped proof
// obligations, substitutions, and proof certificates.
//
// The search core itself (internal/search) is domain-agnostic and consumes
// obligations and certificates as opaque handles. This package is what the
// bundled rule library (internal/rules) operates on.
//
// # Canonical Serialization
//
// Every IR value has a canonical JSON form (RFC 8785 style: keys sorted by
// UTF-16 code units, NFC-normalized strings, no floats, no null). Canonical
// JSON is the ONLY serialization used for content hashing, trace snapshots,
// and golden-file comparison. See MarshalCanonical.
//
// # Metavariables
//
// A metavariable (MVar) is a placeholder term introduced by one branch of the
// search tree that may be assigned by a rule running in a different branch.
// Substitutions map metavariable ids to terms; applying a substitution never
// mutates the receiver.
package ir
