package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/prism/internal/ir"
)

// Accessor and observer clauses in declarations use a small template
// expression form, in the same spirit as "${bound.x}" argument templates:
//
//	${self.width}                  property reference on the instance
//	${type.Audio.thresholdLevel}   type-scoped property reference
//	${value}                       the incoming value (setters, observers)
//	42, "text", true               literals
//	${self.width} * ${self.height} one binary op: + - *
//	min(${value}, 10)              min/max of two terms
//
// The grammar is deliberately tiny: anything richer belongs in a real
// accessor closure registered through NewTypeDef.

// evalExpr evaluates a template expression. value binds ${value}; it may be
// nil when no incoming value exists (getter position).
func evalExpr(e *Evaluator, self *Handle, typeName, expr string, value ir.Value) (ir.Value, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}

	if inner, ok := strings.CutPrefix(s, "min("); ok {
		return evalMinMax(e, self, typeName, inner, value, true)
	}
	if inner, ok := strings.CutPrefix(s, "max("); ok {
		return evalMinMax(e, self, typeName, inner, value, false)
	}

	if op, left, right, ok := splitBinary(s); ok {
		lv, err := evalTerm(e, self, typeName, left, value)
		if err != nil {
			return nil, err
		}
		rv, err := evalTerm(e, self, typeName, right, value)
		if err != nil {
			return nil, err
		}
		li, err := asInt(lv)
		if err != nil {
			return nil, fmt.Errorf("left operand of %q: %w", op, err)
		}
		ri, err := asInt(rv)
		if err != nil {
			return nil, fmt.Errorf("right operand of %q: %w", op, err)
		}
		switch op {
		case "+":
			return ir.Int(li + ri), nil
		case "-":
			return ir.Int(li - ri), nil
		case "*":
			return ir.Int(li * ri), nil
		}
	}

	return evalTerm(e, self, typeName, s, value)
}

// splitBinary splits "term op term" on a top-level operator. Operators must
// be space-separated so references containing '-' stay intact.
func splitBinary(s string) (op, left, right string, ok bool) {
	for _, candidate := range []string{" + ", " - ", " * "} {
		if i := strings.Index(s, candidate); i >= 0 {
			return strings.TrimSpace(candidate), s[:i], s[i+len(candidate):], true
		}
	}
	return "", "", "", false
}

func evalMinMax(e *Evaluator, self *Handle, typeName, inner string, value ir.Value, isMin bool) (ir.Value, error) {
	inner, found := strings.CutSuffix(strings.TrimSpace(inner), ")")
	if !found {
		return nil, fmt.Errorf("unterminated min/max expression")
	}
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("min/max requires exactly two arguments")
	}

	av, err := evalTerm(e, self, typeName, parts[0], value)
	if err != nil {
		return nil, err
	}
	bv, err := evalTerm(e, self, typeName, parts[1], value)
	if err != nil {
		return nil, err
	}
	ai, err := asInt(av)
	if err != nil {
		return nil, err
	}
	bi, err := asInt(bv)
	if err != nil {
		return nil, err
	}

	if isMin == (ai < bi) {
		return ir.Int(ai), nil
	}
	return ir.Int(bi), nil
}

// evalTerm evaluates a single term: a ${ref} or a literal.
func evalTerm(e *Evaluator, self *Handle, typeName, term string, value ir.Value) (ir.Value, error) {
	t := strings.TrimSpace(term)

	if inner, ok := cutRef(t); ok {
		return resolveRef(e, self, typeName, inner, value)
	}

	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return ir.Int(n), nil
	}
	if t == "true" {
		return ir.Bool(true), nil
	}
	if t == "false" {
		return ir.Bool(false), nil
	}
	if strings.HasPrefix(t, `"`) {
		s, err := strconv.Unquote(t)
		if err != nil {
			return nil, fmt.Errorf("malformed string literal %s: %w", t, err)
		}
		return ir.String(s), nil
	}

	return nil, fmt.Errorf("malformed term %q", term)
}

// cutRef strips the ${...} wrapper from a reference term.
func cutRef(t string) (string, bool) {
	if strings.HasPrefix(t, "${") && strings.HasSuffix(t, "}") {
		return t[2 : len(t)-1], true
	}
	return "", false
}

// resolveRef reads a property reference. Forms:
//
//	value            the bound incoming value
//	self.<prop>      instance property through the current handle
//	type.<T>.<prop>  type-scoped property
func resolveRef(e *Evaluator, self *Handle, typeName, ref string, value ir.Value) (ir.Value, error) {
	switch {
	case ref == "value":
		if value == nil {
			return nil, fmt.Errorf("${value} is not bound in this position")
		}
		return value, nil

	case strings.HasPrefix(ref, "self."):
		if self == nil {
			return nil, fmt.Errorf("${self.*} reference in type-scoped position")
		}
		return e.Get(self, strings.TrimPrefix(ref, "self."))

	case strings.HasPrefix(ref, "type."):
		rest := strings.TrimPrefix(ref, "type.")
		tn, prop, ok := strings.Cut(rest, ".")
		if !ok {
			return nil, fmt.Errorf("malformed type reference %q", ref)
		}
		return e.GetType(tn, prop)

	default:
		return nil, fmt.Errorf("malformed reference %q", ref)
	}
}

// writeRef writes a property reference target ("self.x" or "type.T.x").
// Used by computed-setter lowering; the write enters through the normal
// evaluator path so observers and mutability gating apply.
func writeRef(e *Evaluator, self *Handle, typeName, ref string, v ir.Value) error {
	switch {
	case strings.HasPrefix(ref, "self."):
		if self == nil {
			return fmt.Errorf("self target %q in type-scoped position", ref)
		}
		return e.Set(self, strings.TrimPrefix(ref, "self."), v)

	case strings.HasPrefix(ref, "type."):
		rest := strings.TrimPrefix(ref, "type.")
		tn, prop, ok := strings.Cut(rest, ".")
		if !ok {
			return fmt.Errorf("malformed type target %q", ref)
		}
		return e.SetType(tn, prop, v)

	default:
		return fmt.Errorf("malformed target %q", ref)
	}
}

// asInt narrows a Value to int64 for arithmetic.
func asInt(v ir.Value) (int64, error) {
	n, ok := v.(ir.Int)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	return int64(n), nil
}
