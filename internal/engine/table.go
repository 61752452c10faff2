package engine

import (
	"fmt"
	"sync"

	"github.com/roach88/prism/internal/ir"
)

// TypeTable holds the slots for one type's type-scoped stored properties.
// There is exactly one table per type, created on first access and held for
// the life of the process. Type-scoped computed properties own no slot and
// re-evaluate on every access.
type TypeTable struct {
	typ   *TypeDef
	slots map[string]*ValueSlot
}

// newTypeTable realizes the table: eager type-scoped stored properties are
// seeded from their declared defaults (validation guarantees a default
// exists), lazy ones get their thunk.
func newTypeTable(td *TypeDef) (*TypeTable, error) {
	t := &TypeTable{
		typ:   td,
		slots: make(map[string]*ValueSlot),
	}

	for _, name := range td.Names() {
		d, _ := td.Descriptor(name)
		if d.Spec.Scope != ir.ScopeType || !d.Spec.Kind.IsStored() {
			continue
		}

		if d.Spec.Laziness == ir.Lazy {
			t.slots[name] = newLazySlot(d.Default)
			continue
		}
		v, err := d.Default()
		if err != nil {
			return nil, fmt.Errorf("default for %s.%s: %w", td.Name, name, err)
		}
		t.slots[name] = newEagerSlot(v)
	}

	return t, nil
}

// slot returns the named slot, which exists for every type-scoped stored
// property.
func (t *TypeTable) slot(name string) (*ValueSlot, bool) {
	s, ok := t.slots[name]
	return s, ok
}

// Registry holds the resolved type definitions and their type tables.
//
// Type tables are process-wide shared mutable state, so the registry
// serializes table creation and lookup with a mutex. That is the only
// concurrency guarantee the engine gives: slot reads and writes themselves
// follow the single-owner model documented on the package.
//
// The registry is injected into the Evaluator rather than accessed as
// ambient global state, so tests can substitute a scoped one.
type Registry struct {
	mu     sync.Mutex
	types  map[string]*TypeDef
	tables map[string]*TypeTable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  make(map[string]*TypeDef),
		tables: make(map[string]*TypeTable),
	}
}

// Register adds a resolved type definition. Duplicate names are rejected.
func (r *Registry) Register(td *TypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.types[td.Name]; dup {
		return fmt.Errorf("duplicate type: %s", td.Name)
	}
	r.types[td.Name] = td
	return nil
}

// RegisterSpecs lowers and registers compiled declarations in order.
func (r *Registry) RegisterSpecs(specs []ir.TypeSpec) error {
	for _, spec := range specs {
		td, err := BuildType(spec)
		if err != nil {
			return fmt.Errorf("build type %s: %w", spec.Name, err)
		}
		if err := r.Register(td); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the named type definition.
func (r *Registry) Type(name string) (*TypeDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td, ok := r.types[name]
	return td, ok
}

// TypeNames returns registered type names. Order is unspecified; callers
// that need determinism sort the result.
func (r *Registry) TypeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// table returns the type's table, creating it on first access. Idempotent:
// every call for the same type returns the same table.
func (r *Registry) table(name string) (*TypeTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tables[name]; ok {
		return t, nil
	}
	td, ok := r.types[name]
	if !ok {
		return nil, newUnknownTypeError(name)
	}
	t, err := newTypeTable(td)
	if err != nil {
		return nil, err
	}
	r.tables[name] = t
	return t, nil
}

// HasTable reports whether the type's table has been realized yet.
// Used by tests to verify create-on-first-access behavior.
func (r *Registry) HasTable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tables[name]
	return ok
}
