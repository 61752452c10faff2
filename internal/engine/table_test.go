package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func settingsSpec() ir.TypeSpec {
	return ir.TypeSpec{
		Name: "Settings",
		Properties: []ir.PropertySpec{
			{Name: "retries", Kind: ir.StoredVar, Scope: ir.ScopeType, Laziness: ir.Eager, Default: ir.Int(3), HasDefault: true},
			{Name: "vendor", Kind: ir.StoredLet, Scope: ir.ScopeType, Laziness: ir.Eager, Default: ir.String("acme"), HasDefault: true},
		},
	}
}

func TestRegistry_TableCreatedOnFirstAccess(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{settingsSpec()}))
	e := New(reg)

	assert.False(t, reg.HasTable("Settings"), "registration alone must not realize the table")

	v, err := e.GetType("Settings", "retries")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), v)

	assert.True(t, reg.HasTable("Settings"))
}

func TestRegistry_TableIsSharedAcrossAccessPaths(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{settingsSpec()}))
	e := New(reg)

	require.NoError(t, e.SetType("Settings", "retries", ir.Int(9)))

	// Same table, not a fresh one per access.
	v, err := e.GetType("Settings", "retries")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(9), v)
}

func TestRegistry_DuplicateTypeRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{settingsSpec()}))

	err := reg.RegisterSpecs([]ir.TypeSpec{settingsSpec()})
	assert.ErrorContains(t, err, "duplicate type")
}

func TestRegistry_TypeNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{settingsSpec(), audioChannelSpec()}))

	assert.ElementsMatch(t, []string{"Settings", "AudioChannel"}, reg.TypeNames())
}

func TestGetType_InstanceScopedPropertyNotVisible(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSpecs([]ir.TypeSpec{playerSpec()}))
	e := New(reg)

	_, err := e.GetType("Player", "score")
	assert.True(t, IsUnknownProperty(err), "instance-scoped properties are not reachable through the type")
}
