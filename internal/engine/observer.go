package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/prism/internal/ir"
)

// DefaultMaxObserverDepth bounds re-entrant observer writes.
//
// A didSet observer may write the observed property again, which re-runs
// the full willSet/commit/didSet sequence one level deeper. The source
// semantics specify no termination guard; unbounded self-assignment inside
// didSet would never terminate. The engine therefore fails a write chain
// deterministically once it exceeds this depth instead of recursing
// forever. The bound is configurable via WithMaxObserverDepth.
const DefaultMaxObserverDepth = 16

// storedTarget identifies the owner of a slot being written: an instance
// (through a handle) or a type table.
type storedTarget struct {
	self     *Handle // nil for type scope
	typeName string
	targetID string // instance ID, or type name for type scope
	scope    ir.Scope
}

// ObserverCtx is passed to willSet/didSet hooks. It exposes reads of the
// observed property and re-entrant writes that run one level deeper in the
// chain. Observer writes originate inside the instance, so container-handle
// gating does not apply to them; stored-let immutability still does.
type ObserverCtx struct {
	e        *Evaluator
	target   storedTarget
	property string
	depth    int
}

// Depth returns the current re-entry depth (0 for an external write).
func (c ObserverCtx) Depth() int {
	return c.depth
}

// Observed reads the current committed value of the observed property.
// Inside didSet this is the just-committed new value, not the old one.
func (c ObserverCtx) Observed() (ir.Value, error) {
	if c.target.scope == ir.ScopeType {
		return c.e.GetType(c.target.typeName, c.property)
	}
	return c.e.Get(c.target.self, c.property)
}

// WriteObserved re-writes the observed property, re-entering the chain one
// level deeper.
func (c ObserverCtx) WriteObserved(v ir.Value) error {
	if c.target.scope == ir.ScopeType {
		return c.e.setTypeAtDepth(c.target.typeName, c.property, v, c.depth+1)
	}
	return c.e.setAtDepth(c.target.self, c.property, v, c.depth+1)
}

// Get reads a property reference ("self.x" or "type.T.x").
func (c ObserverCtx) Get(ref string) (ir.Value, error) {
	return resolveRef(c.e, c.target.self, c.target.typeName, ref, nil)
}

// Write writes a property reference, re-entering the chain one level
// deeper.
func (c ObserverCtx) Write(ref string, v ir.Value) error {
	switch {
	case len(ref) > 5 && ref[:5] == "self.":
		if c.target.self == nil {
			return fmt.Errorf("self target %q in type-scoped observer", ref)
		}
		return c.e.setAtDepth(c.target.self, ref[5:], v, c.depth+1)
	case len(ref) > 5 && ref[:5] == "type.":
		tn, prop, err := splitTypeRef(ref)
		if err != nil {
			return err
		}
		return c.e.setTypeAtDepth(tn, prop, v, c.depth+1)
	default:
		return fmt.Errorf("malformed target %q", ref)
	}
}

func splitTypeRef(ref string) (typeName, prop string, err error) {
	rest := ref[5:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '.' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed type reference %q", ref)
}

// runWriteChain executes the stored-var write sequence:
//
//  1. willSet observers with the incoming value (realized slots only)
//  2. commit (old value captured by the slot)
//  3. journal record
//  4. didSet observers with the old value (previously realized slots only)
//
// The realized check is what keeps construction-time seeding silent:
// seeding creates the slot realized without passing through here, and the
// first write to a still-unrealized lazy slot commits without observers.
// Every later write fires the full chain, equal values included.
func (e *Evaluator) runWriteChain(t storedTarget, d *Descriptor, slot *ValueSlot, v ir.Value, depth int) error {
	if depth > e.maxDepth {
		slog.Error("observer re-entry exceeded depth bound",
			"type", t.typeName,
			"property", d.Spec.Name,
			"target", t.targetID,
			"depth", depth,
			"max_depth", e.maxDepth,
		)
		return newObserverDepthError(t.typeName, d.Spec.Name, depth, e.maxDepth)
	}

	realized := slot.Realized()
	ctx := ObserverCtx{e: e, target: t, property: d.Spec.Name, depth: depth}

	if realized {
		for _, ob := range d.WillSet {
			if err := ob(ctx, v); err != nil {
				return fmt.Errorf("willSet for %s.%s: %w", t.typeName, d.Spec.Name, err)
			}
		}
	}

	old := slot.commit(v)

	if err := e.recordMutation(t, d, old, v, depth); err != nil {
		return err
	}

	slog.Debug("stored write committed",
		"type", t.typeName,
		"property", d.Spec.Name,
		"target", t.targetID,
		"depth", depth,
	)

	if realized {
		for _, ob := range d.DidSet {
			if err := ob(ctx, old); err != nil {
				return fmt.Errorf("didSet for %s.%s: %w", t.typeName, d.Spec.Name, err)
			}
		}
	}

	return nil
}

// lowerObserverAction compiles a declarative observer action into an
// Observer hook. v is the incoming value for willSet hooks and the old
// value for didSet hooks; actions needing the committed value read it via
// ctx.Observed().
func lowerObserverAction(typeName, property string, a ir.ObserverAction) (Observer, error) {
	switch a.Op {
	case ir.OpCap:
		ref := a.Ref
		return func(ctx ObserverCtx, v ir.Value) error {
			cur, err := ctx.Observed()
			if err != nil {
				return err
			}
			ceil, err := ctx.Get(ref)
			if err != nil {
				return err
			}
			ci, err := asInt(cur)
			if err != nil {
				return err
			}
			li, err := asInt(ceil)
			if err != nil {
				return err
			}
			if ci > li {
				return ctx.WriteObserved(ceil)
			}
			return nil
		}, nil

	case ir.OpRecordMax:
		ref := a.Ref
		return func(ctx ObserverCtx, v ir.Value) error {
			cur, err := ctx.Observed()
			if err != nil {
				return err
			}
			peak, err := ctx.Get(ref)
			if err != nil {
				return err
			}
			ci, err := asInt(cur)
			if err != nil {
				return err
			}
			pi, err := asInt(peak)
			if err != nil {
				return err
			}
			if ci > pi {
				return ctx.Write(ref, cur)
			}
			return nil
		}, nil

	case ir.OpAssign:
		ref, expr := a.Ref, a.Expr
		return func(ctx ObserverCtx, v ir.Value) error {
			val, err := evalExpr(ctx.e, ctx.target.self, ctx.target.typeName, expr, v)
			if err != nil {
				return err
			}
			return ctx.Write(ref, val)
		}, nil

	case ir.OpLog:
		return func(ctx ObserverCtx, v ir.Value) error {
			slog.Info("observer fired",
				"type", typeName,
				"property", property,
				"target", ctx.target.targetID,
				"depth", ctx.depth,
				"value", ir.ToGo(v),
			)
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("type %s property %s: unknown observer op %q", typeName, property, a.Op)
	}
}
