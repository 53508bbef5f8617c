package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// fileOptions is the YAML shape of a search options file. Pointer fields
// distinguish "absent" from "zero": absent fields keep the defaults.
type fileOptions struct {
	MaxGoals                   *int  `yaml:"max_goals"`
	MaxRuleApplications        *int  `yaml:"max_rule_applications"`
	MaxRuleApplicationDepth    *int  `yaml:"max_rule_application_depth"`
	MaxNormIterations          *int  `yaml:"max_norm_iterations"`
	EnableSimplification       *bool `yaml:"enable_simplification"`
	TreatSafeAsUnsafeWithMVars *bool `yaml:"treat_safe_as_unsafe_with_mvars"`
}

// LoadOptionsFile reads a YAML options file and applies it over the
// standard defaults. Unknown keys are rejected.
func LoadOptionsFile(path string) (search.Options, error) {
	opts := search.DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}

	var file fileOptions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return opts, fmt.Errorf("parse options file %s: %w", path, err)
	}

	if file.MaxGoals != nil {
		opts.MaxGoals = *file.MaxGoals
	}
	if file.MaxRuleApplications != nil {
		opts.MaxRuleApplications = *file.MaxRuleApplications
	}
	if file.MaxRuleApplicationDepth != nil {
		opts.MaxRuleApplicationDepth = *file.MaxRuleApplicationDepth
	}
	if file.MaxNormIterations != nil {
		opts.MaxNormIterations = *file.MaxNormIterations
	}
	if file.EnableSimplification != nil {
		opts.EnableSimplification = *file.EnableSimplification
	}
	if file.TreatSafeAsUnsafeWithMVars != nil {
		opts.TreatSafeAsUnsafeWithMVars = *file.TreatSafeAsUnsafeWithMVars
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("options file %s: %w", path, err)
	}

	return opts, nil
}
