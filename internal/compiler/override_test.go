package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func TestResolveExtendsMergesBaseChain(t *testing.T) {
	specs := []ir.TypeSpec{
		{Name: "Base", Properties: []ir.PropertySpec{storedProp("a"), storedProp("b")}},
		{Name: "Mid", Extends: "Base", Properties: []ir.PropertySpec{storedProp("c")}},
		{Name: "Leaf", Extends: "Mid", Properties: []ir.PropertySpec{storedProp("d")}},
	}

	flat, err := ResolveExtends(specs)
	require.NoError(t, err)
	require.Len(t, flat, 3)

	var leaf ir.TypeSpec
	for _, s := range flat {
		assert.Empty(t, s.Extends, "resolved specs are flat")
		if s.Name == "Leaf" {
			leaf = s
		}
	}

	names := make([]string, len(leaf.Properties))
	for i, p := range leaf.Properties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names, "base chain first, own properties after")
}

func TestResolveExtendsOverrideReplacesInPlace(t *testing.T) {
	override := storedProp("a")
	override.Default = ir.Int(99)
	override.DidSet = []ir.ObserverAction{{Op: ir.OpLog}}

	specs := []ir.TypeSpec{
		{Name: "Base", Properties: []ir.PropertySpec{storedProp("a"), storedProp("b")}},
		{Name: "Derived", Extends: "Base", Properties: []ir.PropertySpec{override}},
	}

	flat, err := ResolveExtends(specs)
	require.NoError(t, err)

	derived := flat[1]
	require.Len(t, derived.Properties, 2)
	assert.Equal(t, "a", derived.Properties[0].Name, "override keeps the inherited position")
	assert.Equal(t, ir.Int(99), derived.Properties[0].Default)
	assert.Len(t, derived.Properties[0].DidSet, 1)

	// The base itself is untouched.
	base := flat[0]
	assert.Equal(t, ir.Int(0), base.Properties[0].Default)
	assert.Empty(t, base.Properties[0].DidSet)
}

func TestResolveExtendsUnknownBase(t *testing.T) {
	specs := []ir.TypeSpec{
		{Name: "Orphan", Extends: "Missing", Properties: []ir.PropertySpec{storedProp("x")}},
	}

	_, err := ResolveExtends(specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown base")
}

func TestResolveExtendsCycle(t *testing.T) {
	specs := []ir.TypeSpec{
		{Name: "A", Extends: "B", Properties: []ir.PropertySpec{storedProp("x")}},
		{Name: "B", Extends: "A", Properties: []ir.PropertySpec{storedProp("y")}},
	}

	_, err := ResolveExtends(specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestCompileFullFrontEnd(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: {
			Channel: {
				properties: {
					level: {kind: "stored_var", default: 0}
				}
			}
			BoundedChannel: {
				extends: "Channel"
				properties: {
					level: {
						kind: "stored_var", default: 0
						did_set: [{op: "cap", ref: "type.BoundedChannel.limit"}]
					}
					limit: {kind: "stored_let", scope: "type", default: 10}
				}
			}
		}
	`)

	specs, err := Compile(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	bounded := specs[1]
	assert.Equal(t, "BoundedChannel", bounded.Name)
	assert.Empty(t, bounded.Extends)
	require.Len(t, bounded.Properties, 2)
	assert.Len(t, bounded.Properties[0].DidSet, 1)
}

func TestCompileReportsAllValidationErrors(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: Bad: {
			properties: {
				a: {kind: "computed_ro"}
				b: {kind: "stored_var", scope: "type"}
			}
		}
	`)

	_, err := Compile(v)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, codes(verrs), ErrComputedWithoutGet)
	assert.Contains(t, codes(verrs), ErrMissingDefault)
}
