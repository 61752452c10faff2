package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
)

func traceFixture() []ir.Mutation {
	return []ir.Mutation{
		{
			ID: "m1", Target: "ch-1", TypeName: "AudioChannel", Property: "currentLevel",
			Scope: ir.ScopeInstance, Old: ir.Int(0), New: ir.Int(11),
			Origin: ir.OriginExternal, Depth: 0, Seq: 1,
		},
		{
			ID: "m2", Target: "ch-1", TypeName: "AudioChannel", Property: "currentLevel",
			Scope: ir.ScopeInstance, Old: ir.Int(11), New: ir.Int(10),
			Origin: ir.OriginObserver, Depth: 1, Seq: 2,
		},
		{
			ID: "m3", Target: "AudioChannel", TypeName: "AudioChannel", Property: "maxInputLevel",
			Scope: ir.ScopeType, Old: ir.Int(0), New: ir.Int(10),
			Origin: ir.OriginObserver, Depth: 2, Seq: 3,
		},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := traceFixture()
	depth := 1

	t.Run("full field match", func(t *testing.T) {
		err := assertTraceContains(trace, Assertion{
			Type:     AssertTraceContains,
			Target:   "ch-1",
			Property: "currentLevel",
			Origin:   "observer",
			Depth:    &depth,
			Old:      11,
			New:      10,
		})
		assert.NoError(t, err)
	})

	t.Run("subset match ignores unspecified fields", func(t *testing.T) {
		err := assertTraceContains(trace, Assertion{
			Type:     AssertTraceContains,
			Property: "maxInputLevel",
		})
		assert.NoError(t, err)
	})

	t.Run("value mismatch fails", func(t *testing.T) {
		err := assertTraceContains(trace, Assertion{
			Type:     AssertTraceContains,
			Property: "currentLevel",
			New:      99,
		})
		require.Error(t, err)

		var ae *AssertionError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, AssertTraceContains, ae.Type)
		assert.Contains(t, ae.Error(), "Mutation log")
	})

	t.Run("float in assertion never matches", func(t *testing.T) {
		err := assertTraceContains(trace, Assertion{
			Type:     AssertTraceContains,
			Property: "currentLevel",
			New:      10.5,
		})
		assert.Error(t, err)
	})
}

func TestAssertTraceOrder(t *testing.T) {
	trace := traceFixture()

	t.Run("in order", func(t *testing.T) {
		err := assertTraceOrder(trace, Assertion{
			Type:       AssertTraceOrder,
			Properties: []string{"currentLevel", "maxInputLevel"},
		})
		assert.NoError(t, err)
	})

	t.Run("out of order", func(t *testing.T) {
		err := assertTraceOrder(trace, Assertion{
			Type:       AssertTraceOrder,
			Properties: []string{"maxInputLevel", "currentLevel"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "should be before")
	})

	t.Run("missing property", func(t *testing.T) {
		err := assertTraceOrder(trace, Assertion{
			Type:       AssertTraceOrder,
			Properties: []string{"currentLevel", "gain"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "never mutated: gain")
	})
}

func TestAssertTraceCount(t *testing.T) {
	trace := traceFixture()

	t.Run("exact count", func(t *testing.T) {
		err := assertTraceCount(trace, Assertion{
			Type: AssertTraceCount, Property: "currentLevel", Count: 2,
		})
		assert.NoError(t, err)
	})

	t.Run("target filter", func(t *testing.T) {
		err := assertTraceCount(trace, Assertion{
			Type: AssertTraceCount, Property: "currentLevel", Target: "ch-2", Count: 0,
		})
		assert.NoError(t, err)
	})

	t.Run("mismatch", func(t *testing.T) {
		err := assertTraceCount(trace, Assertion{
			Type: AssertTraceCount, Property: "currentLevel", Count: 1,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 mutations")
	})
}

func TestAssertFinalState(t *testing.T) {
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	ctx := context.Background()
	for _, m := range traceFixture() {
		require.NoError(t, j.Append(ctx, m))
	}

	t.Run("replayed value matches", func(t *testing.T) {
		err := assertFinalState(ctx, j, Assertion{
			Type: AssertFinalState, Target: "ch-1", Property: "currentLevel", Value: 10,
		})
		assert.NoError(t, err)
	})

	t.Run("value mismatch", func(t *testing.T) {
		err := assertFinalState(ctx, j, Assertion{
			Type: AssertFinalState, Target: "ch-1", Property: "currentLevel", Value: 11,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Expected: ch-1.currentLevel = 11")
	})

	t.Run("unknown target", func(t *testing.T) {
		err := assertFinalState(ctx, j, Assertion{
			Type: AssertFinalState, Target: "ch-9", Property: "currentLevel", Value: 10,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no mutations for target/property")
	})
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	result := NewResult()
	result.Mutations = traceFixture()

	msgs := EvaluateAssertions(context.Background(), result, []Assertion{
		{Type: AssertTraceCount, Property: "currentLevel", Count: 2}, // passes
		{Type: AssertTraceCount, Property: "currentLevel", Count: 5}, // fails
		{Type: "bogus"}, // fails
	}, j)

	assert.Len(t, msgs, 2)
}
