package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func storedVar(name string, def ir.Value) *Descriptor {
	return &Descriptor{
		Spec: ir.PropertySpec{
			Name: name, Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Eager,
			Default: def, HasDefault: def != nil,
		},
		Default: func() (ir.Value, error) { return def, nil },
	}
}

func TestNewTypeDef_DuplicateProperty(t *testing.T) {
	_, err := NewTypeDef("T", storedVar("x", ir.Int(0)), storedVar("x", ir.Int(1)))
	assert.ErrorContains(t, err, "duplicate property")
}

func TestNewTypeDef_ComputedNeedsGetter(t *testing.T) {
	_, err := NewTypeDef("T", &Descriptor{
		Spec: ir.PropertySpec{Name: "area", Kind: ir.ComputedReadOnly, Scope: ir.ScopeInstance, Laziness: ir.Eager},
	})
	assert.ErrorContains(t, err, "no getter")
}

func TestNewTypeDef_ReadOnlyRejectsSetter(t *testing.T) {
	_, err := NewTypeDef("T", &Descriptor{
		Spec: ir.PropertySpec{Name: "area", Kind: ir.ComputedReadOnly, Scope: ir.ScopeInstance, Laziness: ir.Eager},
		Get:  func(e *Evaluator, self *Handle) (ir.Value, error) { return ir.Int(0), nil },
		Set:  func(e *Evaluator, self *Handle, v ir.Value) error { return nil },
	})
	assert.ErrorContains(t, err, "has a setter")
}

func TestNewTypeDef_LazyMustBeStoredVar(t *testing.T) {
	_, err := NewTypeDef("T", &Descriptor{
		Spec:    ir.PropertySpec{Name: "x", Kind: ir.StoredLet, Scope: ir.ScopeInstance, Laziness: ir.Lazy},
		Default: func() (ir.Value, error) { return ir.Int(0), nil },
	})
	assert.ErrorContains(t, err, "must be a stored var")
}

func TestNewTypeDef_LazyNeedsDefault(t *testing.T) {
	_, err := NewTypeDef("T", &Descriptor{
		Spec: ir.PropertySpec{Name: "x", Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Lazy},
	})
	assert.ErrorContains(t, err, "no default thunk")
}

func TestNewTypeDef_ObserversRequireEagerStoredVar(t *testing.T) {
	ob := func(ctx ObserverCtx, v ir.Value) error { return nil }

	// Observers on a stored let.
	_, err := NewTypeDef("T", &Descriptor{
		Spec:    ir.PropertySpec{Name: "x", Kind: ir.StoredLet, Scope: ir.ScopeInstance, Laziness: ir.Eager},
		Default: func() (ir.Value, error) { return ir.Int(0), nil },
		DidSet:  []Observer{ob},
	})
	assert.ErrorContains(t, err, "observers")

	// Observers on a lazy stored var.
	_, err = NewTypeDef("T", &Descriptor{
		Spec:    ir.PropertySpec{Name: "y", Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Lazy},
		Default: func() (ir.Value, error) { return ir.Int(0), nil },
		WillSet: []Observer{ob},
	})
	assert.ErrorContains(t, err, "observers")
}

func TestNewTypeDef_TypeScopedStoredNeedsDefault(t *testing.T) {
	_, err := NewTypeDef("T", &Descriptor{
		Spec: ir.PropertySpec{Name: "shared", Kind: ir.StoredVar, Scope: ir.ScopeType, Laziness: ir.Eager},
	})
	assert.ErrorContains(t, err, "no default")
}

func TestBuildType_LowersComputedGetter(t *testing.T) {
	spec := ir.TypeSpec{
		Name: "Rect",
		Properties: []ir.PropertySpec{
			{Name: "width", Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Eager, Default: ir.Int(5), HasDefault: true},
			{Name: "height", Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Eager, Default: ir.Int(6), HasDefault: true},
			{Name: "area", Kind: ir.ComputedReadOnly, Scope: ir.ScopeInstance, Laziness: ir.Eager, Get: "${self.width} * ${self.height}"},
		},
	}

	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{spec}))
	e := New(reg, WithInstanceIDs(NewFixedIDGenerator("r-1")))

	h, err := e.Construct("Rect", nil, ValueHandle, true)
	require.NoError(t, err)

	v, err := e.Get(h, "area")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(30), v)

	// Derived on every get: mutate an input, re-read.
	require.NoError(t, e.Set(h, "width", ir.Int(10)))
	v, err = e.Get(h, "area")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(60), v)
}

func TestBuildType_LowersComputedSetter(t *testing.T) {
	spec := ir.TypeSpec{
		Name: "Celsius",
		Properties: []ir.PropertySpec{
			{Name: "degrees", Kind: ir.StoredVar, Scope: ir.ScopeInstance, Laziness: ir.Eager, Default: ir.Int(0), HasDefault: true},
			{
				Name: "offsetDegrees", Kind: ir.ComputedVar, Scope: ir.ScopeInstance, Laziness: ir.Eager,
				Get: "${self.degrees} + 100",
				Set: []ir.Assignment{{Target: "self.degrees", Expr: "${value} - 100"}},
			},
		},
	}

	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{spec}))
	e := New(reg, WithInstanceIDs(NewFixedIDGenerator("c-1")))

	h, err := e.Construct("Celsius", nil, ValueHandle, true)
	require.NoError(t, err)

	require.NoError(t, e.Set(h, "offsetDegrees", ir.Int(125)))

	v, err := e.Get(h, "degrees")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(25), v)

	v, err = e.Get(h, "offsetDegrees")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(125), v)
}

func TestTypeDef_NamesDeclarationOrder(t *testing.T) {
	td, err := NewTypeDef("T",
		storedVar("c", ir.Int(0)),
		storedVar("a", ir.Int(0)),
		storedVar("b", ir.Int(0)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, td.Names())
}
