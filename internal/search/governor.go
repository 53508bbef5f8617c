package search

// governor enforces the session's resource limits. Goal and rapp limits are
// checked before the nodes are materialized, so a breach aborts without
// creating anything.
type governor struct {
	opts Options
	tree *Tree
}

// ensureGoals fails if creating extra goals would exceed maxGoals.
func (v *governor) ensureGoals(extra int) error {
	if next := v.tree.GoalCount() + extra; next > v.opts.MaxGoals {
		return &LimitError{Limit: "maxGoals", Max: v.opts.MaxGoals, Value: next}
	}
	return nil
}

// ensureRapps fails if creating extra rapps would exceed maxRuleApplications.
func (v *governor) ensureRapps(extra int) error {
	if next := v.tree.RappCount() + extra; next > v.opts.MaxRuleApplications {
		return &LimitError{Limit: "maxRuleApplications", Max: v.opts.MaxRuleApplications, Value: next}
	}
	return nil
}

// depthExceeded reports whether expanding the goal would create rapps past
// the depth limit. Depth breaches prune instead of aborting.
func (v *governor) depthExceeded(goal NodeID) bool {
	return v.tree.GoalDepth(goal)+1 > v.opts.MaxRuleApplicationDepth
}
