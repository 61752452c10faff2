package engine

// HandleKind distinguishes how container mutability propagates from a
// binding to the instance it names.
type HandleKind int

const (
	// ValueHandle propagates immutability structurally: an immutable
	// value-handle blocks every stored-var and computed-setter write on
	// the instance, regardless of the property's own mutability.
	ValueHandle HandleKind = iota

	// ReferenceHandle binds immutability to the reference itself, not the
	// referent: property writes go through even when the handle is
	// immutable.
	ReferenceHandle
)

// String returns the handle kind name.
func (k HandleKind) String() string {
	switch k {
	case ValueHandle:
		return "value"
	case ReferenceHandle:
		return "reference"
	default:
		return "unknown"
	}
}

// Handle is a call-site binding to an instance. The mutability flag lives
// on the handle, not the instance: the same instance may be reachable
// through a mutable handle and an immutable one at once.
type Handle struct {
	kind    HandleKind
	mutable bool
	rec     *InstanceRecord
}

// ID returns the instance's unique ID.
func (h *Handle) ID() string {
	return h.rec.id
}

// TypeName returns the name of the instance's declared type.
func (h *Handle) TypeName() string {
	return h.rec.typ.Name
}

// Kind returns the handle kind.
func (h *Handle) Kind() HandleKind {
	return h.kind
}

// Mutable reports the handle's own mutability flag.
func (h *Handle) Mutable() bool {
	return h.mutable
}

// Rebind returns a new handle to the same instance with a different kind
// and mutability. This models assigning the instance to another binding:
// a reference-type instance assigned to a constant yields an immutable
// reference-handle whose stored vars stay writable.
func (h *Handle) Rebind(kind HandleKind, mutable bool) *Handle {
	return &Handle{kind: kind, mutable: mutable, rec: h.rec}
}

// canMutateProperties reports whether stored-property writes may proceed
// through this handle. Reference-handle immutability binds only the
// reference, so property writes always pass; value-handle immutability
// propagates to all contained slots.
func (h *Handle) canMutateProperties() bool {
	if h.kind == ReferenceHandle {
		return true
	}
	return h.mutable
}
