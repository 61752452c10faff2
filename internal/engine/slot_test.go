package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func TestValueSlot_EagerReadsBack(t *testing.T) {
	s := newEagerSlot(ir.Int(7))

	assert.True(t, s.Realized())
	v, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, ir.Int(7), v)
}

func TestValueSlot_LazyRunsThunkExactlyOnce(t *testing.T) {
	runs := 0
	s := newLazySlot(func() (ir.Value, error) {
		runs++
		return ir.Int(42), nil
	})

	assert.False(t, s.Realized())

	for i := 0; i < 5; i++ {
		v, err := s.Read()
		require.NoError(t, err)
		assert.Equal(t, ir.Int(42), v)
	}

	assert.Equal(t, 1, runs, "lazy default must run at most once")
	assert.True(t, s.Realized())
}

func TestValueSlot_CommitBeforeReadDiscardsThunk(t *testing.T) {
	runs := 0
	s := newLazySlot(func() (ir.Value, error) {
		runs++
		return ir.Int(42), nil
	})

	old := s.commit(ir.Int(99))
	assert.Equal(t, ir.Null{}, old, "unrealized slot reports Null as the old value")

	v, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, ir.Int(99), v)
	assert.Equal(t, 0, runs, "written-before-read lazy default never runs")
}

func TestValueSlot_CommitReturnsPrevious(t *testing.T) {
	s := newEagerSlot(ir.Int(1))

	assert.Equal(t, ir.Int(1), s.commit(ir.Int(2)))
	assert.Equal(t, ir.Int(2), s.commit(ir.Int(3)))
}
