package search

import "fmt"

// Default resource limits. Proof search explodes combinatorially; the
// defaults keep a runaway search cheap while leaving room for realistic
// goals.
const (
	DefaultMaxGoals            = 1000
	DefaultMaxRuleApplications = 400
	DefaultMaxRappDepth        = 30
	DefaultMaxNormIterations   = 100
)

// Options configures a search session. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// MaxGoals caps the total number of goals ever created, branch copies
	// included. Breach is fatal.
	MaxGoals int

	// MaxRuleApplications caps the total number of rule applications ever
	// created. Breach is fatal.
	MaxRuleApplications int

	// MaxRuleApplicationDepth caps tree depth. A goal at the limit is marked
	// unprovable and pruned instead of expanded; this is not fatal.
	MaxRuleApplicationDepth int

	// MaxNormIterations caps the per-goal normalization fixpoint loop.
	// Breach is fatal.
	MaxNormIterations int

	// EnableSimplification controls the simplification step of the
	// normalization pipeline.
	EnableSimplification bool

	// TreatSafeAsUnsafeWithMVars postpones every safe rule into the unsafe
	// queue when the goal references unification variables, avoiding
	// premature commitment of shared variables.
	TreatSafeAsUnsafeWithMVars bool

	// Tracer receives diagnostic events. Nil means no tracing.
	Tracer Tracer
}

// DefaultOptions returns the standard limits with simplification enabled.
func DefaultOptions() Options {
	return Options{
		MaxGoals:                DefaultMaxGoals,
		MaxRuleApplications:     DefaultMaxRuleApplications,
		MaxRuleApplicationDepth: DefaultMaxRappDepth,
		MaxNormIterations:       DefaultMaxNormIterations,
		EnableSimplification:    true,
	}
}

// Validate checks that every limit is positive.
func (o Options) Validate() error {
	limits := []struct {
		name  string
		value int
	}{
		{"maxGoals", o.MaxGoals},
		{"maxRuleApplications", o.MaxRuleApplications},
		{"maxRuleApplicationDepth", o.MaxRuleApplicationDepth},
		{"maxNormIterations", o.MaxNormIterations},
	}
	for _, l := range limits {
		if l.value <= 0 {
			return fmt.Errorf("option %s must be positive, got %d", l.name, l.value)
		}
	}
	return nil
}

func (o Options) tracer() Tracer {
	if o.Tracer == nil {
		return NopTracer{}
	}
	return o.Tracer
}
