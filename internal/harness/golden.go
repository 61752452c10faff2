package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/prism/internal/ir"
)

// TraceSnapshot captures the mutation log and read results for a scenario
// execution. Serialized as canonical JSON for deterministic comparison.
//
// Mutation IDs, the decl hash, and the engine version are content-derived
// from the fields already present, so the snapshot omits them; golden
// files stay stable across engine version bumps.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Reads        []ReadEvent   `json:"reads"`
	Trace        []ir.Mutation `json:"trace"`
}

// toCanonicalMap converts the snapshot to a map[string]any for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, m := range s.Trace {
		traceList[i] = map[string]any{
			"target":   m.Target,
			"type":     m.TypeName,
			"property": m.Property,
			"scope":    string(m.Scope),
			"old":      m.Old,
			"new":      m.New,
			"origin":   string(m.Origin),
			"depth":    m.Depth,
			"seq":      m.Seq,
		}
	}

	readList := make([]any, len(s.Reads))
	for i, r := range s.Reads {
		readList[i] = map[string]any{
			"target":   r.Target,
			"property": r.Property,
			"value":    r.Value,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"reads":         readList,
		"trace":         traceList,
	}
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails or the scenario's own
// expectations and assertions fail. Trace divergence from the golden file
// fails the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return &AssertionError{
			Type:      "scenario",
			Expected:  "all step expectations and assertions to hold",
			Actual:    "failures: " + joinErrors(result.Errors),
			Mutations: result.Mutations,
		}
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Reads:        result.Reads,
		Trace:        result.Mutations,
	}

	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
