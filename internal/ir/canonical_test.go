package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	obj := Object{"b": Int(2), "a": Int(1), "c": Int(3)}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(String("a<b>&c"))
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(data))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "e" + COMBINING ACUTE ACCENT normalizes to precomposed U+00E9.
	decomposed := String("é")
	precomposed := String("é")

	d1, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	d2, err := MarshalCanonical(precomposed)
	require.NoError(t, err)
	assert.Equal(t, d2, d1, "NFC-equivalent strings must serialize identically")
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonical_Null(t *testing.T) {
	// Null is legal in canonical form: mutation records use it for the
	// old value of a previously unrealized slot.
	data, err := MarshalCanonical(Null{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data),
		"U+2028/U+2029 must not be escaped per RFC 8785")
}

func TestMarshalCanonical_EscapedBackslashBeforeU202x(t *testing.T) {
	// A literal backslash followed by the text "u2028" must stay escaped.
	data, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshalCanonical_NestedDeterminism(t *testing.T) {
	obj := Object{
		"outer": Object{"y": Int(2), "x": Int(1)},
		"arr":   Array{Bool(true), String("s"), Int(0)},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"arr":[true,"s",0],"outer":{"x":1,"y":2}}`, string(first))
}
