// Package harness provides conformance testing for the proof search engine.
//
// The harness loads proof scenarios, runs each goal through the real search
// engine, and validates outcomes against the scenario's expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	ruleset: path/to/rules.cue   # optional, defaults to the bundled rules
//	options:                     # optional search option overrides
//	  max_goals: 50
//	goals:
//	  - sequent: "p, q |- p & q"
//	    expect: proved
//	    certificate: "and_intro(hyp(0), hyp(1))"
//	  - sequent: "|- a"
//	    expect: unprovable
//
// Each goal runs in a fresh search session; goals never share state.
// The expect field takes "proved", "unprovable" or "limit". The optional
// certificate field asserts the exact rendered certificate of a proved goal.
//
// # Deterministic Testing
//
// The engine is single-threaded and deterministic, so repeated runs of a
// scenario produce identical outcomes. Runs are recorded into a fresh
// in-memory SQLite store with fixed run IDs (testutil.FixedRunIDGenerator)
// and a stepped time source (testutil.SteppedTime), which keeps the stored
// traces reproducible as well.
//
// # Golden Snapshots
//
// RunWithGolden compares a scenario's outcomes against a golden file in
// testdata/golden/{name}.golden, serialized as RFC 8785 canonical JSON.
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
