package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

func mustAddGoal(t *testing.T, tr *Tree, ob Obligation, parent NodeID, prob float64) *Goal {
	t.Helper()
	g, err := tr.AddGoal(ob, parent, prob, BranchState{}, 0)
	require.NoError(t, err)
	return g
}

func mustAddRapp(t *testing.T, tr *Tree, parent NodeID, prob float64, newVars []ir.MVarID, assigned ir.Subst) *Rapp {
	t.Helper()
	r, err := tr.AddRapp(Rule{Name: "r", Phase: PhaseSafe}, nil, parent, prob, newVars, assigned)
	require.NoError(t, err)
	return r
}

func TestTreeIDMonotonicity(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, nil)
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	g2 := mustAddGoal(t, tr, ob("b"), r1.ID, 1.0)
	r2 := mustAddRapp(t, tr, g1.ID, 0.5, nil, nil)

	assert.Greater(t, r1.ID, root.ID)
	assert.Greater(t, g1.ID, r1.ID)
	assert.Greater(t, g2.ID, g1.ID)
	assert.Greater(t, r2.ID, g1.ID)
	assert.Equal(t, root.ID, tr.Root())
}

func TestTreeRejectsSecondRoot(t *testing.T) {
	tr := NewTree()
	mustAddGoal(t, tr, ob("root"), 0, 1.0)
	_, err := tr.AddGoal(ob("other"), 0, 1.0, BranchState{}, 0)
	require.Error(t, err)
	assert.True(t, IsInternalError(err))
}

func TestTreeDepth(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	assert.Equal(t, 0, tr.GoalDepth(root.ID))

	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, nil)
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	assert.Equal(t, 1, r1.Depth)
	assert.Equal(t, 1, tr.GoalDepth(g1.ID))

	r2 := mustAddRapp(t, tr, g1.ID, 1.0, nil, nil)
	g2 := mustAddGoal(t, tr, ob("b"), r2.ID, 1.0)
	assert.Equal(t, 2, r2.Depth)
	assert.Equal(t, 2, tr.GoalDepth(g2.ID))
}

func TestTreeProofPropagation(t *testing.T) {
	// AND/OR soundness: a rapp is proven when all children are proven, and
	// that proves its parent goal, recursively.
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, nil)
	left := mustAddGoal(t, tr, ob("left"), r1.ID, 1.0)
	right := mustAddGoal(t, tr, ob("right"), r1.ID, 1.0)
	alt := mustAddRapp(t, tr, root.ID, 0.5, nil, nil)

	tr.MarkGoalProven(left.ID, 0, cert("l"))
	assert.Equal(t, RappOpen, r1.State)
	assert.Equal(t, StatusUnproven, root.Status)

	tr.MarkGoalProven(right.ID, 0, cert("r"))
	assert.Equal(t, RappProven, r1.State)
	assert.Equal(t, StatusProvenByRapp, root.Status)
	assert.Equal(t, r1.ID, root.ProvenBy)

	// The losing alternative is retired.
	assert.Equal(t, RappIrrelevant, alt.State)
}

func TestTreeIrrelevanceCoversSubtree(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, nil)
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	r2 := mustAddRapp(t, tr, g1.ID, 1.0, nil, nil)
	g2 := mustAddGoal(t, tr, ob("b"), r2.ID, 1.0)

	tr.MarkRappIrrelevant(r1.ID)
	assert.Equal(t, RappIrrelevant, r1.State)
	assert.True(t, g1.Irrelevant)
	assert.Equal(t, RappIrrelevant, r2.State)
	assert.True(t, g2.Irrelevant)
}

func TestTreeOpenVarTables(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, []ir.MVarID{1, 2}, nil)
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	r2 := mustAddRapp(t, tr, g1.ID, 1.0, []ir.MVarID{3}, nil)
	g2 := mustAddGoal(t, tr, ob("b"), r2.ID, 1.0)

	table := tr.ReachableOpenVars(g2.ID)
	assert.Equal(t, map[ir.MVarID]NodeID{1: r1.ID, 2: r1.ID, 3: r2.ID}, table)

	// A variable assigned at introduction is never open.
	r3 := mustAddRapp(t, tr, g2.ID, 1.0, []ir.MVarID{4}, ir.Subst{4: ir.Const{Name: "a"}})
	g3 := mustAddGoal(t, tr, ob("c"), r3.ID, 1.0)
	table = tr.ReachableOpenVars(g3.ID)
	_, open := table[4]
	assert.False(t, open)
}

func TestTreeResolvedAssignmentsComposeRootFirst(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, ir.Subst{1: ir.MVar{ID: 2}})
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	r2 := mustAddRapp(t, tr, g1.ID, 1.0, nil, ir.Subst{2: ir.Const{Name: "c"}})
	g2 := mustAddGoal(t, tr, ob("b"), r2.ID, 1.0)

	resolved := tr.ResolvedAssignments(g2.ID)
	require.Len(t, resolved, 2)
	// Chained assignments resolve through ApplyTerm.
	assert.Equal(t, ir.Const{Name: "c"}, resolved.ApplyTerm(ir.MVar{ID: 1}))
}

func TestTreeSubtreeWalk(t *testing.T) {
	tr := NewTree()
	root := mustAddGoal(t, tr, ob("root"), 0, 1.0)
	r1 := mustAddRapp(t, tr, root.ID, 1.0, nil, nil)
	g1 := mustAddGoal(t, tr, ob("a"), r1.ID, 1.0)
	r2 := mustAddRapp(t, tr, g1.ID, 1.0, nil, nil)
	g2 := mustAddGoal(t, tr, ob("b"), r1.ID, 1.0)
	r3 := mustAddRapp(t, tr, g2.ID, 1.0, nil, nil)

	assert.Equal(t, []NodeID{r1.ID, r2.ID, r3.ID}, tr.Subtree(r1.ID))
	assert.Equal(t, []NodeID{r2.ID}, tr.Subtree(r2.ID))
}
