package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/prism/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// TypeSpec errors (E101-E109)
	ErrInvalidKind          = "E101" // unknown property kind
	ErrInvalidScope         = "E102" // unknown property scope
	ErrDuplicateProperty    = "E103" // duplicate property name
	ErrComputedWithoutGet   = "E104" // computed property needs a getter
	ErrReadOnlyWithSet      = "E105" // computed_ro must not declare a setter
	ErrStoredWithAccessors  = "E106" // stored property must not declare get/set
	ErrLazyNotStoredVar     = "E107" // lazy requires a mutable stored property
	ErrLazyWithoutDefault   = "E108" // lazy property needs a default
	ErrMissingDefault       = "E109" // type-scoped stored property needs a default

	// Observer and reference errors (E110-E119)
	ErrObserverOnNonStored = "E110" // observers only on eager stored vars
	ErrUnknownObserverOp   = "E111" // unknown observer opcode
	ErrMalformedRef        = "E112" // malformed property reference
	ErrObserverMissingRef  = "E113" // op requires a ref
	ErrAssignMissingExpr   = "E114" // assign requires an expr

	// Inheritance errors (E120-E129)
	ErrUnknownBase      = "E120" // extends references an undeclared type
	ErrExtendsCycle     = "E121" // extends chain forms a cycle
	ErrOverrideMismatch = "E122" // override changes kind or scope
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled declaration against schema rules.
// Returns all errors found (does not fail-fast). Cross-type rules
// (inheritance) are checked by ValidateSet.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.TypeSpec:
		return validateTypeSpec(spec)
	case ir.TypeSpec:
		return validateTypeSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// ValidateSet validates a full declaration set: every type individually,
// plus the extends graph (declared bases, no cycles, compatible overrides).
func ValidateSet(specs []ir.TypeSpec) []ValidationError {
	var errs []ValidationError
	for i := range specs {
		errs = append(errs, validateTypeSpec(&specs[i])...)
	}
	errs = append(errs, validateExtends(specs)...)
	return errs
}

// validateTypeSpec validates a single type declaration.
func validateTypeSpec(spec *ir.TypeSpec) []ValidationError {
	var errs []ValidationError

	names := make(map[string]bool)

	for i := range spec.Properties {
		p := &spec.Properties[i]
		path := fmt.Sprintf("%s.properties[%d]", spec.Name, i)

		// E103: duplicate property name
		if names[p.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate property name: %q", p.Name),
				Code:    ErrDuplicateProperty,
			})
		}
		names[p.Name] = true

		// E101: property kind
		if !ir.ValidKinds[p.Kind] {
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("invalid kind %q, must be one of stored_var, stored_let, computed_var, computed_ro", p.Kind),
				Code:    ErrInvalidKind,
			})
			continue // kind gates every rule below
		}

		// E102: property scope
		if !ir.ValidScopes[p.Scope] {
			errs = append(errs, ValidationError{
				Field:   path + ".scope",
				Message: fmt.Sprintf("invalid scope %q, must be \"instance\" or \"type\"", p.Scope),
				Code:    ErrInvalidScope,
			})
		}

		if p.Kind.IsComputed() {
			// E104: computed needs a getter
			if strings.TrimSpace(p.Get) == "" {
				errs = append(errs, ValidationError{
					Field:   path + ".get",
					Message: fmt.Sprintf("computed property %q requires a get expression", p.Name),
					Code:    ErrComputedWithoutGet,
				})
			}
			// E105: computed_ro rejects setters
			if p.Kind == ir.ComputedReadOnly && len(p.Set) > 0 {
				errs = append(errs, ValidationError{
					Field:   path + ".set",
					Message: fmt.Sprintf("read-only computed property %q must not declare a setter", p.Name),
					Code:    ErrReadOnlyWithSet,
				})
			}
			for j, a := range p.Set {
				if !isValidRef(a.Target) {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.set[%d].target", path, j),
						Message: fmt.Sprintf("malformed target %q, expected \"self.prop\" or \"type.Type.prop\"", a.Target),
						Code:    ErrMalformedRef,
					})
				}
			}
		} else {
			// E106: stored properties have no accessors
			if p.Get != "" || len(p.Set) > 0 {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("stored property %q must not declare get or set", p.Name),
					Code:    ErrStoredWithAccessors,
				})
			}
		}

		if p.Laziness == ir.Lazy {
			// E107: lazy is a stored-var concern
			if p.Kind != ir.StoredVar {
				errs = append(errs, ValidationError{
					Field:   path + ".lazy",
					Message: fmt.Sprintf("lazy property %q must be a stored var", p.Name),
					Code:    ErrLazyNotStoredVar,
				})
			}
			// E108: lazy needs something to realize from
			if !p.HasDefault {
				errs = append(errs, ValidationError{
					Field:   path + ".default",
					Message: fmt.Sprintf("lazy property %q requires a default", p.Name),
					Code:    ErrLazyWithoutDefault,
				})
			}
		}

		// E109: type-scoped stored properties have no per-instance
		// construction step, so the table can only seed from a default.
		if p.Scope == ir.ScopeType && p.Kind.IsStored() && !p.HasDefault {
			errs = append(errs, ValidationError{
				Field:   path + ".default",
				Message: fmt.Sprintf("type-scoped stored property %q requires a default", p.Name),
				Code:    ErrMissingDefault,
			})
		}

		errs = append(errs, validateObservers(path, p)...)
	}

	return errs
}

// validateObservers checks the will_set/did_set clauses of one property.
func validateObservers(path string, p *ir.PropertySpec) []ValidationError {
	var errs []ValidationError

	if !p.HasObservers() {
		return errs
	}

	// E110: observers fire on stored writes, so they require a mutable
	// eager stored property.
	if p.Kind != ir.StoredVar || p.Laziness == ir.Lazy {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("property %q declares observers but is not an eager stored var", p.Name),
			Code:    ErrObserverOnNonStored,
		})
	}

	check := func(clause string, actions []ir.ObserverAction) {
		for j, a := range actions {
			apath := fmt.Sprintf("%s.%s[%d]", path, clause, j)

			// E111: opcode
			if !ir.ValidObserverOps[a.Op] {
				errs = append(errs, ValidationError{
					Field:   apath + ".op",
					Message: fmt.Sprintf("unknown observer op %q", a.Op),
					Code:    ErrUnknownObserverOp,
				})
				continue
			}

			switch a.Op {
			case ir.OpCap, ir.OpRecordMax, ir.OpAssign:
				// E113: these ops act on a referenced property
				if a.Ref == "" {
					errs = append(errs, ValidationError{
						Field:   apath + ".ref",
						Message: fmt.Sprintf("op %q requires a ref", a.Op),
						Code:    ErrObserverMissingRef,
					})
				} else if !isValidRef(a.Ref) {
					// E112: ref shape
					errs = append(errs, ValidationError{
						Field:   apath + ".ref",
						Message: fmt.Sprintf("malformed ref %q, expected \"self.prop\" or \"type.Type.prop\"", a.Ref),
						Code:    ErrMalformedRef,
					})
				}
			}

			// E114: assign writes a computed expression
			if a.Op == ir.OpAssign && strings.TrimSpace(a.Expr) == "" {
				errs = append(errs, ValidationError{
					Field:   apath + ".expr",
					Message: "op \"assign\" requires an expr",
					Code:    ErrAssignMissingExpr,
				})
			}
		}
	}

	check("will_set", p.WillSet)
	check("did_set", p.DidSet)

	return errs
}

// validateExtends checks the inheritance graph of a declaration set.
func validateExtends(specs []ir.TypeSpec) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]*ir.TypeSpec, len(specs))
	for i := range specs {
		byName[specs[i].Name] = &specs[i]
	}

	for i := range specs {
		spec := &specs[i]
		if spec.Extends == "" {
			continue
		}

		// E120: base must be declared in the same set
		base, ok := byName[spec.Extends]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   spec.Name + ".extends",
				Message: fmt.Sprintf("unknown base type %q", spec.Extends),
				Code:    ErrUnknownBase,
			})
			continue
		}

		// E121: walk the chain; a revisit of the start is a cycle
		seen := map[string]bool{spec.Name: true}
		for cur := base; cur != nil; {
			if seen[cur.Name] {
				errs = append(errs, ValidationError{
					Field:   spec.Name + ".extends",
					Message: fmt.Sprintf("extends cycle through %q", cur.Name),
					Code:    ErrExtendsCycle,
				})
				break
			}
			seen[cur.Name] = true
			if cur.Extends == "" {
				break
			}
			cur = byName[cur.Extends]
		}

		// E122: an override keeps the inherited kind and scope; it may
		// change the default and add observers.
		for _, p := range spec.Properties {
			bp := findProperty(base, byName, p.Name)
			if bp == nil {
				continue
			}
			if bp.Kind != p.Kind || bp.Scope != p.Scope {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.properties.%s", spec.Name, p.Name),
					Message: fmt.Sprintf("override of %s.%s must keep kind %q and scope %q", spec.Extends, p.Name, bp.Kind, bp.Scope),
					Code:    ErrOverrideMismatch,
				})
			}
		}
	}

	return errs
}

// findProperty resolves a property by name along a base chain. Cycles are
// reported separately; the walk is bounded to the set size.
func findProperty(base *ir.TypeSpec, byName map[string]*ir.TypeSpec, name string) *ir.PropertySpec {
	for steps := 0; base != nil && steps <= len(byName); steps++ {
		for i := range base.Properties {
			if base.Properties[i].Name == name {
				return &base.Properties[i]
			}
		}
		if base.Extends == "" {
			return nil
		}
		base = byName[base.Extends]
	}
	return nil
}

// selfRefPattern matches "self.prop" references.
var selfRefPattern = regexp.MustCompile(`^self\.[a-zA-Z_][a-zA-Z0-9_]*$`)

// typeRefPattern matches "type.Type.prop" references.
// Type starts with an uppercase letter, the property with a lowercase one.
var typeRefPattern = regexp.MustCompile(`^type\.[A-Z][a-zA-Z0-9]*\.[a-z][a-zA-Z0-9_]*$`)

// isValidRef checks if a property reference has valid format.
func isValidRef(ref string) bool {
	return selfRefPattern.MatchString(ref) || typeRefPattern.MatchString(ref)
}
