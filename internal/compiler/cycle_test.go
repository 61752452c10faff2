package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ir"
)

func TestAnalyzeCyclesEmpty(t *testing.T) {
	warnings := AnalyzeCycles(nil)
	assert.Empty(t, warnings)

	warnings = AnalyzeCycles([]ir.TypeSpec{
		{Name: "T", Properties: []ir.PropertySpec{storedProp("x")}},
	})
	assert.Empty(t, warnings, "observer-free declarations produce no graph")
}

func TestAnalyzeCyclesCapSelfLoop(t *testing.T) {
	level := storedProp("currentLevel")
	level.DidSet = []ir.ObserverAction{
		{Op: ir.OpCap, Ref: "type.AudioChannel.thresholdLevel"},
	}

	warnings := AnalyzeCycles([]ir.TypeSpec{
		{Name: "AudioChannel", Properties: []ir.PropertySpec{
			level,
			{Name: "thresholdLevel", Kind: ir.StoredLet, Scope: ir.ScopeType, Laziness: ir.Eager, Default: ir.Int(10), HasDefault: true},
		}},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"AudioChannel.currentLevel", "AudioChannel.currentLevel"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "Self-writing")
}

func TestAnalyzeCyclesRecordMaxIsAcyclic(t *testing.T) {
	level := storedProp("currentLevel")
	level.DidSet = []ir.ObserverAction{
		{Op: ir.OpRecordMax, Ref: "type.AudioChannel.maxInputLevel"},
	}

	warnings := AnalyzeCycles([]ir.TypeSpec{
		{Name: "AudioChannel", Properties: []ir.PropertySpec{
			level,
			{Name: "maxInputLevel", Kind: ir.StoredVar, Scope: ir.ScopeType, Laziness: ir.Eager, Default: ir.Int(0), HasDefault: true},
		}},
	})

	assert.Empty(t, warnings, "a one-way record edge is a DAG")
}

func TestAnalyzeCyclesMutualAssign(t *testing.T) {
	a := storedProp("a")
	a.DidSet = []ir.ObserverAction{{Op: ir.OpAssign, Ref: "self.b", Expr: "${value}"}}
	b := storedProp("b")
	b.DidSet = []ir.ObserverAction{{Op: ir.OpAssign, Ref: "self.a", Expr: "${value}"}}

	warnings := AnalyzeCycles([]ir.TypeSpec{
		{Name: "T", Properties: []ir.PropertySpec{a, b}},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "cycle")
	assert.Contains(t, warnings[0].Path, "T.a")
	assert.Contains(t, warnings[0].Path, "T.b")
}
