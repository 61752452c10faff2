package harness

import "github.com/roach88/prism/internal/ir"

// ReadEvent records the result of a get or get_type step.
type ReadEvent struct {
	// Target is the instance ID, or the type name for get_type.
	Target string `json:"target"`

	// Property is the property that was read.
	Property string `json:"property"`

	// Value is the value the evaluator returned.
	Value ir.Value `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Mutations is the full journal contents after the scenario ran,
	// in seq order.
	Mutations []ir.Mutation `json:"mutations"`

	// Reads contains the result of every get and get_type step, in
	// execution order.
	Reads []ReadEvent `json:"reads"`

	// Errors contains expectation and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Mutations: []ir.Mutation{},
		Reads:     []ReadEvent{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRead records a read result.
func (r *Result) AddRead(target, property string, v ir.Value) {
	r.Reads = append(r.Reads, ReadEvent{
		Target:   target,
		Property: property,
		Value:    v,
	})
}
