package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
)

// AssertionError is returned when an assertion fails.
// It includes the mutation log to help debug the failure.
type AssertionError struct {
	Type      string        // Assertion type for categorization
	Expected  string        // Human-readable expected outcome
	Actual    string        // Human-readable actual outcome
	Mutations []ir.Mutation // Full mutation log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nMutation log:\n")
	for _, m := range e.Mutations {
		fmt.Fprintf(&buf, "  [%d] %s.%s %v -> %v (%s, depth %d)\n",
			m.Seq, m.Target, m.Property, ir.ToGo(m.Old), ir.ToGo(m.New), m.Origin, m.Depth)
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The journal is consulted for final_state assertions via Replay.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, j *journal.Journal) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Mutations, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Mutations, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Mutations, assertion)
		case AssertFinalState:
			err = assertFinalState(ctx, j, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertTraceContains checks that some mutation matches every field the
// assertion specifies (subset match: unspecified fields are ignored).
func assertTraceContains(mutations []ir.Mutation, assertion Assertion) error {
	for _, m := range mutations {
		if mutationMatches(m, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:      AssertTraceContains,
		Expected:  describeMatch(assertion),
		Actual:    "no matching mutation in log",
		Mutations: mutations,
	}
}

// mutationMatches reports whether a mutation satisfies every specified
// assertion field.
func mutationMatches(m ir.Mutation, a Assertion) bool {
	if m.Property != a.Property {
		return false
	}
	if a.Target != "" && m.Target != a.Target {
		return false
	}
	if a.Origin != "" && string(m.Origin) != a.Origin {
		return false
	}
	if a.Depth != nil && m.Depth != *a.Depth {
		return false
	}
	if a.Old != nil && !valueMatches(m.Old, a.Old) {
		return false
	}
	if a.New != nil && !valueMatches(m.New, a.New) {
		return false
	}
	return true
}

// valueMatches compares a journaled value against a YAML-decoded expected
// value. Conversion failures (e.g. a float in the assertion) never match.
func valueMatches(actual ir.Value, expected any) bool {
	ev, err := ir.FromGo(expected)
	if err != nil {
		return false
	}
	return ir.Equal(actual, ev)
}

// describeMatch renders the specified assertion fields for failure output.
func describeMatch(a Assertion) string {
	parts := []string{fmt.Sprintf("property %s", a.Property)}
	if a.Target != "" {
		parts = append(parts, fmt.Sprintf("target %s", a.Target))
	}
	if a.Origin != "" {
		parts = append(parts, fmt.Sprintf("origin %s", a.Origin))
	}
	if a.Depth != nil {
		parts = append(parts, fmt.Sprintf("depth %d", *a.Depth))
	}
	if a.Old != nil {
		parts = append(parts, fmt.Sprintf("old %v", a.Old))
	}
	if a.New != nil {
		parts = append(parts, fmt.Sprintf("new %v", a.New))
	}
	return "mutation with " + strings.Join(parts, ", ")
}

// assertTraceOrder checks that properties first appear in the mutation
// log in the given order. Occurrences don't need to be consecutive.
func assertTraceOrder(mutations []ir.Mutation, assertion Assertion) error {
	// First position of each expected property, 1-indexed for readability.
	positions := make(map[string]int)
	for i, m := range mutations {
		if positions[m.Property] == 0 {
			positions[m.Property] = i + 1
		}
	}

	for _, prop := range assertion.Properties {
		if positions[prop] == 0 {
			return &AssertionError{
				Type:      AssertTraceOrder,
				Expected:  fmt.Sprintf("all properties mutated: %v", assertion.Properties),
				Actual:    fmt.Sprintf("property never mutated: %s", prop),
				Mutations: mutations,
			}
		}
	}

	for i := 1; i < len(assertion.Properties); i++ {
		prev := assertion.Properties[i-1]
		curr := assertion.Properties[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("properties in order: %v", assertion.Properties),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Mutations: mutations,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the property was mutated exactly the
// specified number of times, optionally restricted to one target.
func assertTraceCount(mutations []ir.Mutation, assertion Assertion) error {
	count := 0
	for _, m := range mutations {
		if m.Property != assertion.Property {
			continue
		}
		if assertion.Target != "" && m.Target != assertion.Target {
			continue
		}
		count++
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:      AssertTraceCount,
			Expected:  fmt.Sprintf("%d mutations of %s", assertion.Count, assertion.Property),
			Actual:    fmt.Sprintf("%d mutations", count),
			Mutations: mutations,
		}
	}

	return nil
}

// assertFinalState replays the journal and checks the rebuilt value for
// one target/property pair. Replay also re-verifies old-value continuity,
// so a passing final_state assertion implies a coherent log.
func assertFinalState(ctx context.Context, j *journal.Journal, assertion Assertion) error {
	state, err := j.Replay(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("replayable journal with %s.%s", assertion.Target, assertion.Property),
			Actual:   fmt.Sprintf("replay error: %v", err),
		}
	}

	actual, ok := state.Value(assertion.Target, assertion.Property)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.Target, assertion.Property, assertion.Value),
			Actual:   "no mutations for target/property",
		}
	}

	if !valueMatches(actual, assertion.Value) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.Target, assertion.Property, assertion.Value),
			Actual:   fmt.Sprintf("%v", ir.ToGo(actual)),
		}
	}

	return nil
}
