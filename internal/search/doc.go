// Package search implements the best-first proof search engine.
//
// The engine discharges a logical goal by trying inference rules against it,
// building an AND-OR tree of alternatives, and assembling a proof certificate
// once some branch fully succeeds. Callers never pick rules; the engine
// explores candidates ordered by heuristic success probability and backtracks
// cheaply by leaving failed branches in place.
//
// ARCHITECTURE:
//
// Single-Owner Search Loop:
// All tree mutation happens inside one Session owned by the Search call.
// There is no locking and no background work. Each loop iteration pops the
// highest-priority open goal, normalizes it, schedules rules against it, and
// checks resource limits. This ensures:
// - Predictable rule trial order (the selector's priority order, always)
// - Reproducible traces for golden comparison
// - Simple reasoning about tree invariants
//
// Tree Shape:
// Goals are OR-nodes (proven when any child rule application is proven);
// rule applications (rapps) are AND-nodes (proven when all child goals are
// proven, or immediately when they have none). Nodes live in an arena and
// reference each other by integer id, never by pointer. Ids increase strictly
// from parent to child, which makes the least common ancestor of a set of
// nodes the one with the smallest id.
//
// Speculative Forks:
// A rule may assign a unification variable shared with an ancestor branch.
// Rather than invalidate the tree, the engine deep-copies the subtree rooted
// at the variable's origin rapp: the copy keeps the variable free while the
// original branch absorbs the assignment. See reconcile.go.
//
// INVARIANTS:
//   - Node ids increase strictly from any node to its children
//   - A goal holds exactly one proof-status variant at any time
//   - Nodes are never deleted, only marked irrelevant
//   - Rule trials within one expansion follow selector priority order
package search
