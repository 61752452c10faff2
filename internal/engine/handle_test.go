package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func TestHandle_RebindSharesRecord(t *testing.T) {
	e := newPlayerEvaluator(t, "p-1")
	h, err := e.Construct("Player", map[string]ir.Value{"name": ir.String("ada")}, ReferenceHandle, true)
	require.NoError(t, err)

	alias := h.Rebind(ReferenceHandle, false)
	assert.Equal(t, h.ID(), alias.ID())
	assert.Equal(t, "Player", alias.TypeName())

	// Writes through one handle are visible through the other.
	require.NoError(t, e.Set(h, "score", ir.Int(3)))
	v, err := e.Get(alias, "score")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), v)
}

func TestHandle_CanMutateProperties(t *testing.T) {
	e := newPlayerEvaluator(t, "p-1")
	h, err := e.Construct("Player", map[string]ir.Value{"name": ir.String("ada")}, ValueHandle, true)
	require.NoError(t, err)

	cases := []struct {
		kind    HandleKind
		mutable bool
		want    bool
	}{
		{ValueHandle, true, true},
		{ValueHandle, false, false}, // value semantics: immutability reaches the slots
		{ReferenceHandle, true, true},
		{ReferenceHandle, false, true}, // reference semantics: only the binding is frozen
	}
	for _, tc := range cases {
		got := h.Rebind(tc.kind, tc.mutable).canMutateProperties()
		assert.Equal(t, tc.want, got, "%s mutable=%v", tc.kind, tc.mutable)
	}
}

func TestHandleKind_String(t *testing.T) {
	assert.Equal(t, "value", ValueHandle.String())
	assert.Equal(t, "reference", ReferenceHandle.String())
}
