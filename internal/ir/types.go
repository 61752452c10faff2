package ir

// Kind identifies how a property stores or derives its value.
type Kind string

const (
	// StoredVar is a mutable stored property backed by a slot.
	StoredVar Kind = "stored_var"
	// StoredLet is an immutable stored property: seeded once at
	// construction, rejects all later writes.
	StoredLet Kind = "stored_let"
	// ComputedVar is a computed property with a getter and a setter.
	// It owns no slot; the getter runs on every read.
	ComputedVar Kind = "computed_var"
	// ComputedReadOnly is a computed property with a getter only.
	ComputedReadOnly Kind = "computed_ro"
)

// ValidKinds defines the allowed property kinds.
var ValidKinds = map[Kind]bool{
	StoredVar:        true,
	StoredLet:        true,
	ComputedVar:      true,
	ComputedReadOnly: true,
}

// IsStored reports whether the kind is backed by a slot.
func (k Kind) IsStored() bool { return k == StoredVar || k == StoredLet }

// IsComputed reports whether the kind is accessor-backed.
func (k Kind) IsComputed() bool { return k == ComputedVar || k == ComputedReadOnly }

// Scope identifies whether a property belongs to each instance or to the
// type as a whole (one shared value for all instances).
type Scope string

const (
	ScopeInstance Scope = "instance"
	ScopeType     Scope = "type"
)

// ValidScopes defines the allowed property scopes.
var ValidScopes = map[Scope]bool{
	ScopeInstance: true,
	ScopeType:     true,
}

// Laziness identifies when a stored property's default is evaluated.
type Laziness string

const (
	// Eager defaults are evaluated at construction (instance scope) or
	// table realization (type scope).
	Eager Laziness = "eager"
	// Lazy defaults are evaluated on first read, at most once.
	Lazy Laziness = "lazy"
)

// ValidLaziness defines the allowed laziness modes.
var ValidLaziness = map[Laziness]bool{
	Eager: true,
	Lazy:  true,
}

// Observer action opcodes. Declarative observer clauses compile to one of
// these; the engine lowers them onto the willSet/didSet hooks.
const (
	// OpCap re-writes the observed property down to the referenced ceiling
	// when the committed value exceeds it. didSet only (it re-enters the
	// write path).
	OpCap = "cap"
	// OpRecordMax writes the committed value into the referenced property
	// when it exceeds that property's current value. didSet only.
	OpRecordMax = "record_max"
	// OpAssign evaluates an expression (with ${value} bound to the
	// observer argument) and writes it to the referenced property.
	OpAssign = "assign"
	// OpLog emits a structured log line carrying the observer argument.
	OpLog = "log"
)

// ValidObserverOps defines the allowed observer opcodes.
var ValidObserverOps = map[string]bool{
	OpCap:       true,
	OpRecordMax: true,
	OpAssign:    true,
	OpLog:       true,
}

// ObserverAction is one declarative step of a willSet or didSet clause.
// Actions run in declaration order.
type ObserverAction struct {
	Op   string `json:"op"`
	Ref  string `json:"ref,omitempty"`  // property reference: "self.x" or "type.T.x"
	Expr string `json:"expr,omitempty"` // expression for OpAssign
}

// Assignment is one lowering step of a computed property's setter:
// evaluate Expr (with ${value} bound to the incoming value) and write the
// result to Target.
type Assignment struct {
	Target string `json:"target"` // property reference: "self.x" or "type.T.x"
	Expr   string `json:"expr"`
}

// PropertySpec is the declaration of a single property.
type PropertySpec struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Scope    Scope    `json:"scope"`
	Laziness Laziness `json:"laziness"`

	// Default is the declared default value. Required for type-scoped
	// stored properties; optional elsewhere. Nil means no default.
	Default Value `json:"-"`
	// HasDefault distinguishes "no default" from "default null".
	HasDefault bool `json:"has_default"`

	// Get is the getter expression for computed kinds.
	Get string `json:"get,omitempty"`
	// Set is the setter lowering for ComputedVar. Empty on ComputedReadOnly.
	Set []Assignment `json:"set,omitempty"`

	WillSet []ObserverAction `json:"will_set,omitempty"`
	DidSet  []ObserverAction `json:"did_set,omitempty"`
}

// HasObservers reports whether the property declares any observer clause.
func (p *PropertySpec) HasObservers() bool {
	return len(p.WillSet) > 0 || len(p.DidSet) > 0
}

// TypeSpec is the compiled declaration of a type: its property set in
// declaration order. Extends names an optional base type whose descriptors
// are merged in at validation time (resolved once, no late-bound lookup).
type TypeSpec struct {
	Name       string         `json:"name"`
	Extends    string         `json:"extends,omitempty"`
	Properties []PropertySpec `json:"properties"`
}

// Property returns the named property spec, or nil when absent.
func (t *TypeSpec) Property(name string) *PropertySpec {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i]
		}
	}
	return nil
}

// Mutation origin markers.
const (
	// OriginExternal marks a write entering through the Evaluator API.
	OriginExternal = "external"
	// OriginObserver marks a re-entrant write issued by an observer.
	OriginObserver = "observer"
)

// Mutation is one committed stored-property write, as recorded in the
// journal. Computed properties never produce mutations (they own no slot).
type Mutation struct {
	ID            string `json:"id"`     // Content-addressed hash
	Target        string `json:"target"` // Instance ID, or type name for type scope
	TypeName      string `json:"type_name"`
	Property      string `json:"property"`
	Scope         Scope  `json:"scope"`
	Old           Value  `json:"old"` // Null when the slot was unrealized
	New           Value  `json:"new"`
	Origin        string `json:"origin"` // OriginExternal or OriginObserver
	Depth         int    `json:"depth"`  // Observer re-entry depth (0 = external)
	Seq           int64  `json:"seq"`    // Logical clock
	DeclHash      string `json:"decl_hash"`
	EngineVersion string `json:"engine_version"`
}
