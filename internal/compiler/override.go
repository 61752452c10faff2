package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/prism/internal/ir"
)

// ResolveExtends flattens inheritance: each type's property list becomes
// its base chain's properties (outermost base first) with the type's own
// declarations merged over them. Resolution happens once, here; the engine
// sees flat TypeSpecs and does no late-bound lookup.
//
// An override replaces the inherited declaration wholesale, so a derived
// type re-declaring an inherited stored var with observer clauses attaches
// those observers to the inherited slot. Validation (ValidateSet) has
// already guaranteed the graph is acyclic and overrides keep kind and
// scope.
func ResolveExtends(specs []ir.TypeSpec) ([]ir.TypeSpec, error) {
	byName := make(map[string]*ir.TypeSpec, len(specs))
	for i := range specs {
		byName[specs[i].Name] = &specs[i]
	}

	resolved := make(map[string][]ir.PropertySpec, len(specs))

	var resolve func(name string, trail map[string]bool) ([]ir.PropertySpec, error)
	resolve = func(name string, trail map[string]bool) ([]ir.PropertySpec, error) {
		if props, done := resolved[name]; done {
			return props, nil
		}
		if trail[name] {
			return nil, fmt.Errorf("extends cycle through %q", name)
		}
		trail[name] = true

		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown base type %q", name)
		}

		var merged []ir.PropertySpec
		if spec.Extends != "" {
			baseProps, err := resolve(spec.Extends, trail)
			if err != nil {
				return nil, err
			}
			merged = append(merged, baseProps...)
		}

		// Merge own declarations: overrides replace in place, new
		// properties append in declaration order.
		index := make(map[string]int, len(merged))
		for i, p := range merged {
			index[p.Name] = i
		}
		for _, p := range spec.Properties {
			if i, override := index[p.Name]; override {
				merged[i] = p
				continue
			}
			merged = append(merged, p)
		}

		resolved[name] = merged
		return merged, nil
	}

	out := make([]ir.TypeSpec, 0, len(specs))
	for i := range specs {
		props, err := resolve(specs[i].Name, map[string]bool{})
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", specs[i].Name, err)
		}
		flat := specs[i]
		flat.Extends = ""
		flat.Properties = make([]ir.PropertySpec, len(props))
		copy(flat.Properties, props)
		out = append(out, flat)
	}

	return out, nil
}

// Compile runs the full front end over a CUE declaration document: parse,
// validate the set, resolve inheritance. The returned specs are flat and
// ready for engine lowering.
func Compile(v cue.Value) ([]ir.TypeSpec, error) {
	specs, err := CompileDecls(v)
	if err != nil {
		return nil, err
	}

	if errs := ValidateSet(specs); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return ResolveExtends(specs)
}

// ValidationErrors aggregates set-level validation failures into one error.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, ve := range e {
		msg += "\n  " + ve.Error()
	}
	return msg
}
