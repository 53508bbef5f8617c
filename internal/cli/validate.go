package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ruben-VandeVelde/aesop/internal/ruleset"
)

// ValidationResult holds rule set validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Name   string   `json:"name,omitempty"`
	Rules  []string `json:"rules,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <ruleset.cue>",
		Short: "Validate a CUE rule set without proving anything",
		Long: `Validate a CUE rule set file.

Checks syntax, that every rule name is known, that phases and priorities
are well-formed, and that unsafe rules carry a success probability in (0, 1].

Example:
  aesop validate ./custom.cue
  aesop validate ./custom.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	set, err := ruleset.CompileFile(path)
	if err != nil {
		var compileErr *ruleset.CompileError
		if errors.As(err, &compileErr) {
			return outputValidationFailure(formatter, compileErr.Error())
		}
		// Unreadable file, syntax errors and such are command-level errors
		_ = formatter.Error("ruleset", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile rule set", err)
	}

	// A compiled set must also produce a usable library: this catches
	// constraints the library layer enforces on top of the CUE shape.
	if _, err := set.Library(); err != nil {
		return outputValidationFailure(formatter, err.Error())
	}

	result := ValidationResult{
		Valid: true,
		Name:  set.Name,
	}
	for _, spec := range set.Specs {
		result.Rules = append(result.Rules, spec.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ rule set valid (%d rules)\n", len(result.Rules))
	formatter.VerboseLog("rules: %v", result.Rules)
	return nil
}

func outputValidationFailure(f *OutputFormatter, message string) error {
	if f.Format == "json" {
		response := Response{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: []string{message}},
			Error:  &ErrorBody{Code: "ruleset", Message: message},
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "rule set invalid")
	}

	fmt.Fprintln(f.Writer, "✗ rule set invalid")
	fmt.Fprintf(f.Writer, "  %s\n", message)
	return NewExitError(ExitFailure, "rule set invalid")
}
