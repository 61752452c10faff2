package journal

import (
	"path/filepath"
	"testing"

	"github.com/roach88/prism/internal/ir"
)

// createTestJournal creates a new file-backed journal in a temp dir.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// createTestMutation creates an instance-scoped mutation with a
// content-addressed ID over its fields.
func createTestMutation(t *testing.T, target, property string, old, newVal ir.Value, seq int64) ir.Mutation {
	t.Helper()
	id, err := ir.MutationID(target, property, old, newVal, seq)
	if err != nil {
		t.Fatalf("MutationID() failed: %v", err)
	}
	return ir.Mutation{
		ID:            id,
		Target:        target,
		TypeName:      "Player",
		Property:      property,
		Scope:         ir.ScopeInstance,
		Old:           old,
		New:           newVal,
		Origin:        ir.OriginExternal,
		Depth:         0,
		Seq:           seq,
		DeclHash:      "test-hash",
		EngineVersion: ir.EngineVersion,
	}
}
