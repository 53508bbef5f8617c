package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a rule set, search options,
// and a list of goals with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ruleset is an optional path to a CUE rule set, relative to the
	// scenario file location. Empty means the bundled default rules.
	Ruleset string `yaml:"ruleset,omitempty"`

	// Options overrides search options. Absent fields keep the defaults.
	Options *OptionsClause `yaml:"options,omitempty"`

	// Goals lists the proof obligations to run, in order.
	Goals []GoalStep `yaml:"goals"`
}

// OptionsClause mirrors the search options a scenario may override.
// Pointer fields distinguish "absent" from "zero".
type OptionsClause struct {
	MaxGoals                   *int  `yaml:"max_goals,omitempty"`
	MaxRuleApplications        *int  `yaml:"max_rule_applications,omitempty"`
	MaxRuleApplicationDepth    *int  `yaml:"max_rule_application_depth,omitempty"`
	MaxNormIterations          *int  `yaml:"max_norm_iterations,omitempty"`
	EnableSimplification       *bool `yaml:"enable_simplification,omitempty"`
	TreatSafeAsUnsafeWithMVars *bool `yaml:"treat_safe_as_unsafe_with_mvars,omitempty"`
}

// GoalStep is one proof obligation with its expected outcome.
type GoalStep struct {
	// Sequent is the obligation in concrete syntax, e.g. "p, q |- p & q".
	Sequent string `yaml:"sequent"`

	// Expect is the expected outcome: "proved", "unprovable" or "limit".
	Expect string `yaml:"expect"`

	// Certificate optionally asserts the exact rendered certificate of a
	// proved goal, e.g. "and_intro(hyp(0), hyp(1))".
	Certificate string `yaml:"certificate,omitempty"`
}

// Expected outcome constants.
const (
	ExpectProved     = "proved"
	ExpectUnprovable = "unprovable"
	ExpectLimit      = "limit"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "goal:" vs "goals:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the ruleset path relative to the scenario file
	if scenario.Ruleset != "" && !filepath.IsAbs(scenario.Ruleset) {
		scenario.Ruleset = filepath.Join(filepath.Dir(path), scenario.Ruleset)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Goals) == 0 {
		return fmt.Errorf("goals list is required and must be non-empty")
	}

	if s.Ruleset != "" {
		if _, err := os.Stat(s.Ruleset); os.IsNotExist(err) {
			return fmt.Errorf("ruleset file not found: %s", s.Ruleset)
		}
	}

	for i, goal := range s.Goals {
		if goal.Sequent == "" {
			return fmt.Errorf("goals[%d]: sequent is required", i)
		}
		switch goal.Expect {
		case ExpectProved:
		case ExpectUnprovable, ExpectLimit:
			if goal.Certificate != "" {
				return fmt.Errorf("goals[%d]: certificate only applies to proved goals", i)
			}
		case "":
			return fmt.Errorf("goals[%d]: expect is required", i)
		default:
			return fmt.Errorf("goals[%d]: unknown expect %q", i, goal.Expect)
		}
	}

	return nil
}
