package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/prism/internal/ir"
)

// Recorder receives every committed stored write. Implemented by
// journal.Journal (durable) and by test recorders.
type Recorder interface {
	Record(m ir.Mutation) error
}

// Evaluator is the single entry point for property access. It maintains no
// state beyond its collaborators: call sites never touch slots, observer
// chains, or type tables directly.
type Evaluator struct {
	reg      *Registry
	clock    *Clock
	idGen    InstanceIDGenerator
	rec      Recorder
	declHash string
	maxDepth int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRecorder directs committed stored writes to a journal.
func WithRecorder(r Recorder) Option {
	return func(e *Evaluator) { e.rec = r }
}

// WithClock installs a pre-positioned clock. Used by replay to resume from
// the last journaled seq.
func WithClock(c *Clock) Option {
	return func(e *Evaluator) { e.clock = c }
}

// WithInstanceIDs substitutes the instance ID generator. Tests use
// NewFixedIDGenerator for deterministic IDs.
func WithInstanceIDs(g InstanceIDGenerator) Option {
	return func(e *Evaluator) { e.idGen = g }
}

// WithDeclHash stamps mutation records with the declaration-set hash.
func WithDeclHash(h string) Option {
	return func(e *Evaluator) { e.declHash = h }
}

// WithMaxObserverDepth overrides the re-entrant observer depth bound.
// Use a small value to exercise the guard in tests.
func WithMaxObserverDepth(n int) Option {
	return func(e *Evaluator) { e.maxDepth = n }
}

// New creates an Evaluator over a registry.
func New(reg *Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		reg:      reg,
		clock:    NewClock(),
		idGen:    UUIDv7Generator{},
		maxDepth: DefaultMaxObserverDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the injected registry.
func (e *Evaluator) Registry() *Registry {
	return e.reg
}

// Clock returns the evaluator's logical clock.
func (e *Evaluator) Clock() *Clock {
	return e.clock
}

// MaxObserverDepth returns the configured observer re-entry bound.
func (e *Evaluator) MaxObserverDepth() int {
	return e.maxDepth
}

// Construct creates an instance of the named type and returns a handle of
// the requested kind and mutability. Seeding follows the construction
// rules on newInstanceRecord; observers never fire, and nothing is
// journaled (seeding establishes state, it does not mutate it).
func (e *Evaluator) Construct(typeName string, initial map[string]ir.Value, kind HandleKind, mutable bool) (*Handle, error) {
	td, ok := e.reg.Type(typeName)
	if !ok {
		return nil, newUnknownTypeError(typeName)
	}

	id := e.idGen.Generate()
	rec, err := newInstanceRecord(id, td, initial)
	if err != nil {
		return nil, err
	}

	slog.Debug("instance constructed",
		"type", typeName,
		"instance", id,
		"handle_kind", kind.String(),
		"mutable", mutable,
	)

	return &Handle{kind: kind, mutable: mutable, rec: rec}, nil
}

// Get reads a property through an instance handle. Reads are permitted
// regardless of the handle's mutability. A type-scoped property accessed
// through an instance resolves against the type's table, so mutations are
// visible from every instance of the type.
func (e *Evaluator) Get(h *Handle, name string) (ir.Value, error) {
	td := h.rec.typ
	d, ok := td.Descriptor(name)
	if !ok {
		return nil, newUnknownPropertyError(td.Name, name)
	}

	if d.Spec.Scope == ir.ScopeType {
		return e.GetType(td.Name, name)
	}

	if d.Spec.Kind.IsComputed() {
		return d.Get(e, h)
	}

	slot, ok := h.rec.slot(name)
	if !ok {
		return nil, fmt.Errorf("missing slot for %s.%s", td.Name, name)
	}
	return slot.Read()
}

// Set writes a property through an instance handle.
func (e *Evaluator) Set(h *Handle, name string, v ir.Value) error {
	return e.setAtDepth(h, name, v, 0)
}

// setAtDepth is the instance write path. depth 0 is an external write;
// higher depths are re-entrant observer writes, which bypass container
// gating (they originate inside the instance) but not stored-let
// immutability.
func (e *Evaluator) setAtDepth(h *Handle, name string, v ir.Value, depth int) error {
	td := h.rec.typ
	d, ok := td.Descriptor(name)
	if !ok {
		return newUnknownPropertyError(td.Name, name)
	}

	if d.Spec.Scope == ir.ScopeType {
		return e.setTypeAtDepth(td.Name, name, v, depth)
	}

	// Read-only computed rejects all writes, mutable handle or not.
	if d.Spec.Kind == ir.ComputedReadOnly {
		return newReadOnlyPropertyError(td.Name, name)
	}

	if depth == 0 && !h.canMutateProperties() {
		return newImmutableContainerError(td.Name, name, h.ID())
	}

	switch d.Spec.Kind {
	case ir.StoredLet:
		return newImmutableWriteError(td.Name, name, h.ID())

	case ir.ComputedVar:
		return d.Set(e, h, v)

	case ir.StoredVar:
		slot, ok := h.rec.slot(name)
		if !ok {
			return fmt.Errorf("missing slot for %s.%s", td.Name, name)
		}
		t := storedTarget{
			self:     h,
			typeName: td.Name,
			targetID: h.ID(),
			scope:    ir.ScopeInstance,
		}
		return e.runWriteChain(t, d, slot, v, depth)

	default:
		return fmt.Errorf("unknown property kind %q", d.Spec.Kind)
	}
}

// GetType reads a type-scoped property. The type's table is created on
// first access.
func (e *Evaluator) GetType(typeName, name string) (ir.Value, error) {
	td, ok := e.reg.Type(typeName)
	if !ok {
		return nil, newUnknownTypeError(typeName)
	}
	d, ok := td.Descriptor(name)
	if !ok || d.Spec.Scope != ir.ScopeType {
		return nil, newUnknownPropertyError(typeName, name)
	}

	if d.Spec.Kind.IsComputed() {
		return d.Get(e, nil)
	}

	table, err := e.reg.table(typeName)
	if err != nil {
		return nil, err
	}
	slot, ok := table.slot(name)
	if !ok {
		return nil, fmt.Errorf("missing slot for %s.%s", typeName, name)
	}
	return slot.Read()
}

// SetType writes a type-scoped property. No container handle is involved:
// type properties are not contained in any instance, so only the
// property's own mutability gates the write.
func (e *Evaluator) SetType(typeName, name string, v ir.Value) error {
	return e.setTypeAtDepth(typeName, name, v, 0)
}

func (e *Evaluator) setTypeAtDepth(typeName, name string, v ir.Value, depth int) error {
	td, ok := e.reg.Type(typeName)
	if !ok {
		return newUnknownTypeError(typeName)
	}
	d, ok := td.Descriptor(name)
	if !ok || d.Spec.Scope != ir.ScopeType {
		return newUnknownPropertyError(typeName, name)
	}

	if d.Spec.Kind == ir.ComputedReadOnly {
		return newReadOnlyPropertyError(typeName, name)
	}

	switch d.Spec.Kind {
	case ir.StoredLet:
		return newImmutableWriteError(typeName, name, typeName)

	case ir.ComputedVar:
		return d.Set(e, nil, v)

	case ir.StoredVar:
		table, err := e.reg.table(typeName)
		if err != nil {
			return err
		}
		slot, ok := table.slot(name)
		if !ok {
			return fmt.Errorf("missing slot for %s.%s", typeName, name)
		}
		t := storedTarget{
			typeName: typeName,
			targetID: typeName,
			scope:    ir.ScopeType,
		}
		return e.runWriteChain(t, d, slot, v, depth)

	default:
		return fmt.Errorf("unknown property kind %q", d.Spec.Kind)
	}
}

// recordMutation stamps and journals a committed write. The seq is
// allocated unconditionally so clock positions stay stable whether or not
// a recorder is attached.
func (e *Evaluator) recordMutation(t storedTarget, d *Descriptor, old, newVal ir.Value, depth int) error {
	seq := e.clock.Next()
	if e.rec == nil {
		return nil
	}

	id, err := ir.MutationID(t.targetID, d.Spec.Name, old, newVal, seq)
	if err != nil {
		return fmt.Errorf("mutation ID for %s.%s: %w", t.typeName, d.Spec.Name, err)
	}

	origin := ir.OriginExternal
	if depth > 0 {
		origin = ir.OriginObserver
	}

	m := ir.Mutation{
		ID:            id,
		Target:        t.targetID,
		TypeName:      t.typeName,
		Property:      d.Spec.Name,
		Scope:         t.scope,
		Old:           old,
		New:           newVal,
		Origin:        origin,
		Depth:         depth,
		Seq:           seq,
		DeclHash:      e.declHash,
		EngineVersion: ir.EngineVersion,
	}

	if err := e.rec.Record(m); err != nil {
		return fmt.Errorf("record mutation %s: %w", id, err)
	}

	slog.Info("mutation recorded",
		"type", t.typeName,
		"property", d.Spec.Name,
		"target", t.targetID,
		"origin", origin,
		"seq", seq,
	)

	return nil
}
