package engine

import (
	"fmt"

	"github.com/roach88/prism/internal/ir"
)

// ValueSlot is a single storage cell for a stored property.
//
// A slot is either realized (holds a value) or unrealized (holds a pending
// lazy default). The realized flag is what the observer chain consults:
// observers fire only on writes to an already-realized slot, which is how
// construction-time seeding stays silent.
//
// Mutability gating (stored let, container handles) lives above the slot in
// the instance record and evaluator; the slot itself is a dumb cell.
type ValueSlot struct {
	value    ir.Value
	realized bool
	thunk    func() (ir.Value, error) // lazy default, run at most once
}

// newEagerSlot creates a realized slot seeded with v.
func newEagerSlot(v ir.Value) *ValueSlot {
	return &ValueSlot{value: v, realized: true}
}

// newLazySlot creates an unrealized slot whose value is computed by thunk
// on first read.
func newLazySlot(thunk func() (ir.Value, error)) *ValueSlot {
	return &ValueSlot{thunk: thunk}
}

// Read returns the slot's content. For an unrealized lazy slot it evaluates
// the default thunk exactly once, marks the slot realized, and retains the
// result; subsequent reads return the retained value without re-running the
// thunk.
func (s *ValueSlot) Read() (ir.Value, error) {
	if s.realized {
		return s.value, nil
	}
	if s.thunk == nil {
		return nil, fmt.Errorf("unrealized slot has no default")
	}
	v, err := s.thunk()
	if err != nil {
		return nil, fmt.Errorf("lazy default evaluation: %w", err)
	}
	s.value = v
	s.realized = true
	s.thunk = nil
	return v, nil
}

// Realized reports whether the slot holds a value.
func (s *ValueSlot) Realized() bool {
	return s.realized
}

// commit replaces the slot's content and returns the previous value.
// Returns ir.Null for a previously unrealized slot so mutation records
// never carry a Go nil. A commit discards any pending lazy thunk: the
// default expression for a written-before-read lazy property never runs.
func (s *ValueSlot) commit(v ir.Value) ir.Value {
	old := s.value
	if !s.realized {
		old = ir.Null{}
	}
	s.value = v
	s.realized = true
	s.thunk = nil
	return old
}
