package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios compile inline declarations, execute a sequence of evaluator
// operations, and assert on the resulting mutation log and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are stored
	// under testdata/golden/{Name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Decls is inline CUE source declaring the types under test.
	// It must contain a top-level "types" struct.
	Decls string `yaml:"decls"`

	// IDPrefix sets the instance ID prefix ("obj" when empty).
	// Constructed instances are named {prefix}-1, {prefix}-2, ...
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Steps is the operation sequence to execute.
	Steps []Step `yaml:"steps"`

	// Assertions validate the mutation log and replayed final state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single evaluator operation.
// Which fields apply depends on Op; see the Op* constants.
type Step struct {
	// Op selects the operation: construct, set, get, set_type, get_type.
	Op string `yaml:"op"`

	// Type names the type (construct, set_type, get_type).
	Type string `yaml:"type,omitempty"`

	// As names the handle binding created by construct.
	As string `yaml:"as,omitempty"`

	// Handle selects the handle kind for construct: "value" or
	// "reference". Defaults to "reference".
	Handle string `yaml:"handle,omitempty"`

	// Mutable sets handle mutability for construct. Defaults to true.
	Mutable *bool `yaml:"mutable,omitempty"`

	// With seeds stored properties at construction.
	With map[string]any `yaml:"with,omitempty"`

	// On names the handle binding to operate on (set, get).
	On string `yaml:"on,omitempty"`

	// Property names the property (set, get, set_type, get_type).
	Property string `yaml:"property,omitempty"`

	// Value is the value to write (set, set_type).
	Value any `yaml:"value,omitempty"`

	// Expect is the expected read result (get, get_type).
	// When nil, the read value is recorded but not checked.
	Expect any `yaml:"expect,omitempty"`

	// Error is the expected evaluation error code (e.g. "IMMUTABLE_WRITE").
	// When set, the step must fail with exactly this code.
	Error string `yaml:"error,omitempty"`
}

// Step operation constants.
const (
	OpConstruct = "construct"
	OpSet       = "set"
	OpGet       = "get"
	OpSetType   = "set_type"
	OpGetType   = "get_type"
)

// Assertion validates the mutation log or replayed final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a mutation matching the given fields exists
	// - "trace_order": properties first appear in the given order
	// - "trace_count": the property was mutated exactly N times
	// - "final_state": replaying the journal yields the given value
	Type string `yaml:"type"`

	// Target filters by mutation target: an instance ID such as "obj-2",
	// or the type name for type-scoped properties.
	// Used by trace_contains, trace_count, final_state.
	Target string `yaml:"target,omitempty"`

	// Property names the property.
	// Used by trace_contains, trace_count, final_state.
	Property string `yaml:"property,omitempty"`

	// Origin filters by mutation origin: "external" or "observer".
	// Used by trace_contains.
	Origin string `yaml:"origin,omitempty"`

	// Depth filters by observer re-entry depth. Used by trace_contains.
	Depth *int `yaml:"depth,omitempty"`

	// Old is the expected pre-write value. Used by trace_contains.
	Old any `yaml:"old,omitempty"`

	// New is the expected committed value. Used by trace_contains.
	New any `yaml:"new,omitempty"`

	// Value is the expected replayed value. Used by final_state.
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of mutations. Used by trace_count.
	Count int `yaml:"count,omitempty"`

	// Properties is the expected first-occurrence order of property
	// names in the mutation log. Used by trace_order.
	Properties []string `yaml:"properties,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ValidateScenario checks that required fields are present and valid.
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Decls == "" {
		return fmt.Errorf("decls is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bindings := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, &step, bindings); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op. The bindings map
// tracks construct bindings so later steps can be checked against them.
func validateStep(index int, step *Step, bindings map[string]bool) error {
	switch step.Op {
	case OpConstruct:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for construct", index)
		}
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required for construct", index)
		}
		if step.Handle != "" && step.Handle != "value" && step.Handle != "reference" {
			return fmt.Errorf("steps[%d]: handle must be %q or %q, got %q", index, "value", "reference", step.Handle)
		}
		// A failed construct produces no binding; don't let later steps
		// reference it.
		if step.Error == "" {
			bindings[step.As] = true
		}

	case OpSet, OpGet:
		if step.On == "" {
			return fmt.Errorf("steps[%d]: on is required for %s", index, step.Op)
		}
		if !bindings[step.On] {
			return fmt.Errorf("steps[%d]: unknown binding %q (no prior construct)", index, step.On)
		}
		if step.Property == "" {
			return fmt.Errorf("steps[%d]: property is required for %s", index, step.Op)
		}
		if step.Op == OpSet && step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for set", index)
		}

	case OpSetType, OpGetType:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for %s", index, step.Op)
		}
		if step.Property == "" {
			return fmt.Errorf("steps[%d]: property is required for %s", index, step.Op)
		}
		if step.Op == OpSetType && step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for set_type", index)
		}

	case "":
		return fmt.Errorf("steps[%d]: op is required", index)

	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Property == "" {
			return fmt.Errorf("assertions[%d]: property is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Properties) == 0 {
			return fmt.Errorf("assertions[%d]: properties list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Property == "" {
			return fmt.Errorf("assertions[%d]: property is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for final_state", index)
		}
		if a.Property == "" {
			return fmt.Errorf("assertions[%d]: property is required for final_state", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
