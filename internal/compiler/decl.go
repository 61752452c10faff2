package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/prism/internal/ir"
)

// CompileDecls parses a CUE value holding a declaration set into TypeSpecs.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the document root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`types: AudioChannel: { ... }`)
//	specs, err := CompileDecls(v)
//
// Declaration order is preserved: property order within a type follows the
// CUE source, and so does the order of types.
func CompileDecls(v cue.Value) ([]ir.TypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CompileError{
			Field:   "types",
			Message: "declaration set requires a top-level types struct",
			Pos:     v.Pos(),
		}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.TypeSpec
	for iter.Next() {
		spec, err := CompileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}

	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "types",
			Message: "at least one type declaration is required",
			Pos:     typesVal.Pos(),
		}
	}

	return specs, nil
}

// CompileType parses one type declaration struct into a TypeSpec.
func CompileType(name string, v cue.Value) (*ir.TypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.TypeSpec{Name: name}

	extendsVal := v.LookupPath(cue.ParsePath("extends"))
	if extendsVal.Exists() {
		base, err := extendsVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Extends = base
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("types.%s.properties", name),
			Message: "type declaration requires a properties struct",
			Pos:     v.Pos(),
		}
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		prop, err := parseProperty(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Properties = append(spec.Properties, prop)
	}

	if len(spec.Properties) == 0 && spec.Extends == "" {
		return nil, &CompileError{
			Field:   fmt.Sprintf("types.%s.properties", name),
			Message: "at least one property is required",
			Pos:     propsVal.Pos(),
		}
	}

	return spec, nil
}

// parseProperty parses a single property declaration.
func parseProperty(typeName, propName string, v cue.Value) (ir.PropertySpec, error) {
	field := func(leaf string) string {
		return fmt.Sprintf("types.%s.properties.%s.%s", typeName, propName, leaf)
	}

	prop := ir.PropertySpec{
		Name:     propName,
		Scope:    ir.ScopeInstance,
		Laziness: ir.Eager,
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return prop, &CompileError{
			Field:   field("kind"),
			Message: "kind is required",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return prop, formatCUEError(err)
	}
	prop.Kind = ir.Kind(kind)

	scopeVal := v.LookupPath(cue.ParsePath("scope"))
	if scopeVal.Exists() {
		scope, err := scopeVal.String()
		if err != nil {
			return prop, formatCUEError(err)
		}
		prop.Scope = ir.Scope(scope)
	}

	lazyVal := v.LookupPath(cue.ParsePath("lazy"))
	if lazyVal.Exists() {
		lazy, err := lazyVal.Bool()
		if err != nil {
			return prop, formatCUEError(err)
		}
		if lazy {
			prop.Laziness = ir.Lazy
		}
	}

	defaultVal := v.LookupPath(cue.ParsePath("default"))
	if defaultVal.Exists() {
		def, err := parseValue(field("default"), defaultVal)
		if err != nil {
			return prop, err
		}
		prop.Default = def
		prop.HasDefault = true
	}

	getVal := v.LookupPath(cue.ParsePath("get"))
	if getVal.Exists() {
		get, err := getVal.String()
		if err != nil {
			return prop, formatCUEError(err)
		}
		prop.Get = get
	}

	setVal := v.LookupPath(cue.ParsePath("set"))
	if setVal.Exists() {
		prop.Set, err = parseAssignments(field("set"), setVal)
		if err != nil {
			return prop, err
		}
	}

	willVal := v.LookupPath(cue.ParsePath("will_set"))
	if willVal.Exists() {
		prop.WillSet, err = parseObserverActions(field("will_set"), willVal)
		if err != nil {
			return prop, err
		}
	}

	didVal := v.LookupPath(cue.ParsePath("did_set"))
	if didVal.Exists() {
		prop.DidSet, err = parseObserverActions(field("did_set"), didVal)
		if err != nil {
			return prop, err
		}
	}

	return prop, nil
}

// parseAssignments parses a computed setter's assignment list.
func parseAssignments(field string, v cue.Value) ([]ir.Assignment, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Assignment
	for iter.Next() {
		av := iter.Value()

		target, err := av.LookupPath(cue.ParsePath("target")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		expr, err := av.LookupPath(cue.ParsePath("expr")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, ir.Assignment{Target: target, Expr: expr})
	}

	if len(out) == 0 {
		return nil, &CompileError{
			Field:   field,
			Message: "setter requires at least one assignment",
			Pos:     v.Pos(),
		}
	}
	return out, nil
}

// parseObserverActions parses a will_set/did_set action list.
func parseObserverActions(field string, v cue.Value) ([]ir.ObserverAction, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.ObserverAction
	for iter.Next() {
		av := iter.Value()

		opVal := av.LookupPath(cue.ParsePath("op"))
		if !opVal.Exists() {
			return nil, &CompileError{
				Field:   field,
				Message: "observer action requires an op",
				Pos:     av.Pos(),
			}
		}
		op, err := opVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		action := ir.ObserverAction{Op: op}

		refVal := av.LookupPath(cue.ParsePath("ref"))
		if refVal.Exists() {
			if action.Ref, err = refVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		exprVal := av.LookupPath(cue.ParsePath("expr"))
		if exprVal.Exists() {
			if action.Expr, err = exprVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		out = append(out, action)
	}

	return out, nil
}

// parseValue converts a concrete CUE value to an IR value.
// Floats are forbidden; declarations use ints.
func parseValue(field string, v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := parseValue(field, iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := parseValue(field, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
