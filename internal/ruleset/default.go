package ruleset

import (
	_ "embed"

	"github.com/Ruben-VandeVelde/aesop/internal/rules"
)

//go:embed default.cue
var defaultCUE string

// DefaultSource returns the CUE text of the bundled default rule set.
func DefaultSource() string { return defaultCUE }

// Default compiles the bundled default rule set. It mirrors
// rules.DefaultSpecs but goes through the CUE pipeline, so the embedded
// definition is itself under test.
func Default() (*Set, error) {
	return CompileString(defaultCUE)
}

// DefaultLibrary is a convenience for callers that only need the library.
func DefaultLibrary() (*rules.Library, error) {
	set, err := Default()
	if err != nil {
		return nil, err
	}
	return set.Library()
}
