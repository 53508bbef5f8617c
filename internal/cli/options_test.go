package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

func writeOptions(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadOptionsFile_Overrides(t *testing.T) {
	path := writeOptions(t, `
max_goals: 50
max_rule_application_depth: 5
enable_simplification: false
treat_safe_as_unsafe_with_mvars: true
`)

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, opts.MaxGoals)
	assert.Equal(t, 5, opts.MaxRuleApplicationDepth)
	assert.False(t, opts.EnableSimplification)
	assert.True(t, opts.TreatSafeAsUnsafeWithMVars)

	// Absent fields keep the defaults
	assert.Equal(t, search.DefaultMaxRuleApplications, opts.MaxRuleApplications)
	assert.Equal(t, search.DefaultMaxNormIterations, opts.MaxNormIterations)
}

func TestLoadOptionsFile_Empty(t *testing.T) {
	path := writeOptions(t, "")

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)
	assert.Equal(t, search.DefaultOptions(), opts)
}

func TestLoadOptionsFile_UnknownKey(t *testing.T) {
	path := writeOptions(t, "max_gaols: 10\n")

	_, err := LoadOptionsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_gaols")
}

func TestLoadOptionsFile_InvalidLimit(t *testing.T) {
	path := writeOptions(t, "max_goals: 0\n")

	_, err := LoadOptionsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxGoals")
}

func TestLoadOptionsFile_Missing(t *testing.T) {
	_, err := LoadOptionsFile("/nonexistent/options.yaml")
	require.Error(t, err)
}
