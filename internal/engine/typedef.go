package engine

import (
	"fmt"

	"github.com/roach88/prism/internal/ir"
)

// Getter derives a computed property's value. Computed properties own no
// slot; the getter runs on every read. self is nil for type-scoped
// properties.
type Getter func(e *Evaluator, self *Handle) (ir.Value, error)

// Setter applies a write to a computed property, typically by writing
// through to the stored properties it derives from. self is nil for
// type-scoped properties.
type Setter func(e *Evaluator, self *Handle, v ir.Value) error

// Observer is a willSet or didSet hook. For willSet, v is the incoming
// (not-yet-committed) value; for didSet, v is the just-replaced old value.
// Writes issued through ctx re-enter the evaluation chain one level deeper.
type Observer func(ctx ObserverCtx, v ir.Value) error

// Descriptor is the runtime form of a property declaration: the spec plus
// the lowered accessor and observer closures.
type Descriptor struct {
	Spec ir.PropertySpec

	// Get is required for computed kinds, nil for stored kinds.
	Get Getter
	// Set is present only on ComputedVar.
	Set Setter

	WillSet []Observer
	DidSet  []Observer

	// Default produces the declared default value. Nil when the property
	// has no default. For lazy properties this is the thunk that runs on
	// first read.
	Default func() (ir.Value, error)
}

// TypeDef is the resolved descriptor table for one declared type. It is
// assembled once (inheritance merges included) and never changes afterward:
// property lookup is a plain map access, not late-bound dispatch.
type TypeDef struct {
	Name  string
	props map[string]*Descriptor
	order []string // declaration order
}

// NewTypeDef assembles a descriptor table from programmatic descriptors.
// Declaration order follows the argument order. Basic structural invariants
// are enforced here so engine-level callers get the same guarantees as
// CUE-compiled declarations; full validation lives in the compiler.
func NewTypeDef(name string, descs ...*Descriptor) (*TypeDef, error) {
	td := &TypeDef{
		Name:  name,
		props: make(map[string]*Descriptor, len(descs)),
		order: make([]string, 0, len(descs)),
	}

	for _, d := range descs {
		spec := &d.Spec
		if spec.Name == "" {
			return nil, fmt.Errorf("type %s: property with empty name", name)
		}
		if _, dup := td.props[spec.Name]; dup {
			return nil, fmt.Errorf("type %s: duplicate property %q", name, spec.Name)
		}
		if spec.Kind.IsComputed() && d.Get == nil {
			return nil, fmt.Errorf("type %s: computed property %q has no getter", name, spec.Name)
		}
		if spec.Kind == ir.ComputedReadOnly && d.Set != nil {
			return nil, fmt.Errorf("type %s: read-only computed property %q has a setter", name, spec.Name)
		}
		if spec.Laziness == ir.Lazy && spec.Kind != ir.StoredVar {
			return nil, fmt.Errorf("type %s: lazy property %q must be a stored var", name, spec.Name)
		}
		if spec.Laziness == ir.Lazy && d.Default == nil {
			return nil, fmt.Errorf("type %s: lazy property %q has no default thunk", name, spec.Name)
		}
		if (len(d.WillSet) > 0 || len(d.DidSet) > 0) &&
			(spec.Kind != ir.StoredVar || spec.Laziness == ir.Lazy) {
			return nil, fmt.Errorf("type %s: observers on %q require an eager stored var", name, spec.Name)
		}
		if spec.Scope == ir.ScopeType && spec.Kind.IsStored() && d.Default == nil {
			return nil, fmt.Errorf("type %s: type-scoped stored property %q has no default", name, spec.Name)
		}

		td.props[spec.Name] = d
		td.order = append(td.order, spec.Name)
	}

	return td, nil
}

// BuildType lowers a compiled declaration into a runtime TypeDef:
// getter/setter expressions become closures, declarative observer actions
// become Observer hooks. The declaration is assumed to have passed compiler
// validation; structural invariants are still re-checked by NewTypeDef.
func BuildType(spec ir.TypeSpec) (*TypeDef, error) {
	descs := make([]*Descriptor, 0, len(spec.Properties))

	for i := range spec.Properties {
		p := spec.Properties[i]
		d := &Descriptor{Spec: p}

		if p.HasDefault {
			def := p.Default
			d.Default = func() (ir.Value, error) { return def, nil }
		}

		if p.Kind.IsComputed() {
			expr := p.Get
			typeName := spec.Name
			d.Get = func(e *Evaluator, self *Handle) (ir.Value, error) {
				return evalExpr(e, self, typeName, expr, nil)
			}
			if len(p.Set) > 0 {
				assigns := p.Set
				d.Set = func(e *Evaluator, self *Handle, v ir.Value) error {
					for _, a := range assigns {
						val, err := evalExpr(e, self, typeName, a.Expr, v)
						if err != nil {
							return fmt.Errorf("setter for %s.%s: %w", typeName, p.Name, err)
						}
						if err := writeRef(e, self, typeName, a.Target, val); err != nil {
							return fmt.Errorf("setter for %s.%s: %w", typeName, p.Name, err)
						}
					}
					return nil
				}
			}
		}

		for _, a := range p.WillSet {
			ob, err := lowerObserverAction(spec.Name, p.Name, a)
			if err != nil {
				return nil, err
			}
			d.WillSet = append(d.WillSet, ob)
		}
		for _, a := range p.DidSet {
			ob, err := lowerObserverAction(spec.Name, p.Name, a)
			if err != nil {
				return nil, err
			}
			d.DidSet = append(d.DidSet, ob)
		}

		descs = append(descs, d)
	}

	return NewTypeDef(spec.Name, descs...)
}

// Descriptor returns the named property descriptor.
func (t *TypeDef) Descriptor(name string) (*Descriptor, bool) {
	d, ok := t.props[name]
	return d, ok
}

// Names returns property names in declaration order.
func (t *TypeDef) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
