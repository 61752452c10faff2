package engine

import (
	"fmt"

	"github.com/roach88/prism/internal/ir"
)

// InstanceRecord is the per-instance mapping of property name to ValueSlot.
// Computed properties store no slot; they are derived on every get.
//
// A record is owned by exactly one instance and reached only through
// handles. It is not safe for concurrent use: ownership by a single logical
// thread of control at a time is the caller's contract.
type InstanceRecord struct {
	id    string
	typ   *TypeDef
	slots map[string]*ValueSlot
}

// newInstanceRecord seeds one slot per instance-scoped stored property.
// Observers never run here: seeding establishes initial values, and the
// observer chain only fires on writes to already-realized slots.
//
// Seeding rules per property:
//   - supplied initial value: realized slot (a supplied value for a lazy
//     property pre-empts its thunk)
//   - lazy, not supplied: unrealized slot holding the default thunk
//   - eager with declared default: realized slot with the default
//   - otherwise: MISSING_REQUIRED_VALUE
func newInstanceRecord(id string, td *TypeDef, initial map[string]ir.Value) (*InstanceRecord, error) {
	rec := &InstanceRecord{
		id:    id,
		typ:   td,
		slots: make(map[string]*ValueSlot),
	}

	for name, v := range initial {
		d, ok := td.Descriptor(name)
		if !ok {
			return nil, newUnknownPropertyError(td.Name, name)
		}
		if d.Spec.Kind.IsComputed() {
			return nil, &EvalError{
				Code:     ErrCodeReadOnlyProperty,
				Message:  "computed property cannot be seeded at construction",
				TypeName: td.Name,
				Property: name,
			}
		}
		if d.Spec.Scope == ir.ScopeType {
			return nil, &EvalError{
				Code:     ErrCodeUnknownProperty,
				Message:  "type-scoped property cannot be seeded through an instance",
				TypeName: td.Name,
				Property: name,
			}
		}
		rec.slots[name] = newEagerSlot(v)
	}

	for _, name := range td.Names() {
		d, _ := td.Descriptor(name)
		if d.Spec.Scope != ir.ScopeInstance || !d.Spec.Kind.IsStored() {
			continue
		}
		if _, seeded := rec.slots[name]; seeded {
			continue
		}

		switch {
		case d.Spec.Laziness == ir.Lazy:
			rec.slots[name] = newLazySlot(d.Default)
		case d.Default != nil:
			v, err := d.Default()
			if err != nil {
				return nil, fmt.Errorf("default for %s.%s: %w", td.Name, name, err)
			}
			rec.slots[name] = newEagerSlot(v)
		default:
			return nil, newMissingRequiredValueError(td.Name, name)
		}
	}

	return rec, nil
}

// slot returns the named slot, which exists for every instance-scoped
// stored property after construction.
func (r *InstanceRecord) slot(name string) (*ValueSlot, bool) {
	s, ok := r.slots[name]
	return s, ok
}
