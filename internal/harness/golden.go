package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
)

// snapshotMap converts a result to the canonical-map form used for golden
// comparison. Stats and run IDs are deliberately excluded: outcomes and
// certificates are the contract, resource costs are not.
func snapshotMap(scenarioName string, result *Result) map[string]any {
	goals := make([]any, len(result.Goals))
	for i, g := range result.Goals {
		goalMap := map[string]any{
			"sequent": g.Sequent,
			"status":  g.Status,
		}
		if g.Certificate != "" {
			goalMap["certificate"] = g.Certificate
		}
		goals[i] = goalMap
	}

	return map[string]any{
		"scenario_name": scenarioName,
		"goals":         goals,
	}
}

// RunWithGolden executes a scenario, fails the test on any expectation
// mismatch, and compares the outcomes against a golden file stored in
// testdata/golden/{scenario.Name}.golden as RFC 8785 canonical JSON.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	defer result.Close()

	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	snapshot, err := ir.MarshalCanonical(snapshotMap(scenario.Name, result))
	if err != nil {
		t.Fatalf("scenario %s: marshal snapshot: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
}
