// Package ruleset compiles declarative CUE rule-set definitions into
// configured rule libraries. A rule set names built-in rule builders and
// fixes their phase, priority and probability; the CUE layer validates
// shape and ranges and reports errors with source positions.
package ruleset

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/Ruben-VandeVelde/aesop/internal/rules"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// Set is a compiled rule set.
type Set struct {
	Name  string
	Specs []rules.Spec
}

// Library instantiates the configured rule library.
func (s *Set) Library() (*rules.Library, error) {
	return rules.New(s.Specs)
}

// CompileError is a rule-set compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile compiles the rule set in a .cue file.
func CompileFile(path string) (*Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return compileSource(src, path)
}

// CompileString compiles a rule set from CUE source text.
func CompileString(src string) (*Set, error) {
	return compileSource([]byte(src), "ruleset.cue")
}

func compileSource(src []byte, filename string) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	root := v.LookupPath(cue.ParsePath("ruleset"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "ruleset",
			Message: "top-level ruleset struct is required",
			Pos:     v.Pos(),
		}
	}
	return Compile(root)
}

// Compile parses a CUE value holding the ruleset struct:
//
//	ruleset: {
//		name: "default"
//		rules: {
//			assumption: {phase: "safe", priority: 10}
//			or_left:    {phase: "unsafe", probability: 0.55}
//		}
//	}
func Compile(v cue.Value) (*Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	set := &Set{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		set.Name = name
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "rules struct is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := compileRule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		set.Specs = append(set.Specs, spec)
	}
	if len(set.Specs) == 0 {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     rulesVal.Pos(),
		}
	}
	return set, nil
}

func compileRule(name string, v cue.Value) (rules.Spec, error) {
	spec := rules.Spec{Name: name}

	if !rules.Known(name) {
		return spec, &CompileError{
			Field:   name,
			Message: fmt.Sprintf("unknown rule %q", name),
			Pos:     v.Pos(),
		}
	}

	phaseVal := v.LookupPath(cue.ParsePath("phase"))
	if !phaseVal.Exists() {
		return spec, &CompileError{
			Field:   name + ".phase",
			Message: "phase is required",
			Pos:     v.Pos(),
		}
	}
	phase, err := phaseVal.String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	switch phase {
	case "norm":
		spec.Phase = search.PhaseNorm
	case "safe":
		spec.Phase = search.PhaseSafe
	case "unsafe":
		spec.Phase = search.PhaseUnsafe
	default:
		return spec, &CompileError{
			Field:   name + ".phase",
			Message: fmt.Sprintf("invalid phase %q, must be \"norm\", \"safe\", or \"unsafe\"", phase),
			Pos:     phaseVal.Pos(),
		}
	}

	prioVal := v.LookupPath(cue.ParsePath("priority"))
	if prioVal.Exists() {
		prio, err := prioVal.Int64()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Priority = int(prio)
	}

	probVal := v.LookupPath(cue.ParsePath("probability"))
	if probVal.Exists() {
		prob, err := probVal.Float64()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Probability = prob
	}

	if spec.Phase == search.PhaseUnsafe {
		if !probVal.Exists() {
			return spec, &CompileError{
				Field:   name + ".probability",
				Message: "unsafe rules require a probability",
				Pos:     v.Pos(),
			}
		}
		if spec.Probability <= 0 || spec.Probability > 1 {
			return spec, &CompileError{
				Field:   name + ".probability",
				Message: fmt.Sprintf("probability must be in (0, 1], got %g", spec.Probability),
				Pos:     probVal.Pos(),
			}
		}
	}
	return spec, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
