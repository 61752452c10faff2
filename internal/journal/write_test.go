package journal

import (
	"context"
	"testing"

	"github.com/roach88/prism/internal/ir"
)

func TestAppend_Basic(t *testing.T) {
	j := createTestJournal(t)
	m := createTestMutation(t, "p-1", "score", ir.Int(0), ir.Int(150), 1)

	if err := j.Append(context.Background(), m); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var storedID, target, property, oldJSON, newJSON, origin string
	var seq int64
	err := j.db.QueryRow(`
		SELECT id, target, property, old_value, new_value, origin, seq
		FROM mutations
		WHERE id = ?
	`, m.ID).Scan(&storedID, &target, &property, &oldJSON, &newJSON, &origin, &seq)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if storedID != m.ID {
		t.Errorf("id = %q, want %q", storedID, m.ID)
	}
	if target != "p-1" {
		t.Errorf("target = %q, want %q", target, "p-1")
	}
	if property != "score" {
		t.Errorf("property = %q, want %q", property, "score")
	}
	if oldJSON != "0" || newJSON != "150" {
		t.Errorf("values = (%q, %q), want (\"0\", \"150\")", oldJSON, newJSON)
	}
	if origin != ir.OriginExternal {
		t.Errorf("origin = %q, want %q", origin, ir.OriginExternal)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
}

func TestAppend_IdempotentByID(t *testing.T) {
	j := createTestJournal(t)
	m := createTestMutation(t, "p-1", "score", ir.Int(0), ir.Int(150), 1)

	for i := 0; i < 3; i++ {
		if err := j.Append(context.Background(), m); err != nil {
			t.Fatalf("Append() attempt %d failed: %v", i, err)
		}
	}

	var count int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM mutations").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (duplicate appends are no-ops)", count)
	}
}

func TestAppend_NullOldValue(t *testing.T) {
	j := createTestJournal(t)

	// First write to an unrealized lazy slot journals Null as the old value.
	m := createTestMutation(t, "p-1", "data", ir.Null{}, ir.String("loaded"), 1)
	if err := j.Append(context.Background(), m); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var oldJSON string
	if err := j.db.QueryRow("SELECT old_value FROM mutations WHERE id = ?", m.ID).Scan(&oldJSON); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if oldJSON != "null" {
		t.Errorf("old_value = %q, want %q", oldJSON, "null")
	}
}

func TestAppend_CanonicalJSON(t *testing.T) {
	j := createTestJournal(t)

	// Keys land in canonical (UTF-16 code unit) order regardless of
	// insertion order.
	obj := ir.Object{"b": ir.Int(2), "a": ir.Int(1)}
	m := createTestMutation(t, "p-1", "config", ir.Null{}, obj, 1)

	if err := j.Append(context.Background(), m); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var newJSON string
	if err := j.db.QueryRow("SELECT new_value FROM mutations WHERE id = ?", m.ID).Scan(&newJSON); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := `{"a":1,"b":2}`
	if newJSON != want {
		t.Errorf("new_value = %q, want %q", newJSON, want)
	}
}

func TestAppend_TypeScoped(t *testing.T) {
	j := createTestJournal(t)

	id, err := ir.MutationID("AudioChannel", "maxInputLevel", ir.Int(0), ir.Int(7), 2)
	if err != nil {
		t.Fatalf("MutationID() failed: %v", err)
	}
	m := ir.Mutation{
		ID:            id,
		Target:        "AudioChannel",
		TypeName:      "AudioChannel",
		Property:      "maxInputLevel",
		Scope:         ir.ScopeType,
		Old:           ir.Int(0),
		New:           ir.Int(7),
		Origin:        ir.OriginObserver,
		Depth:         1,
		Seq:           2,
		EngineVersion: ir.EngineVersion,
	}

	if err := j.Append(context.Background(), m); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	got, err := j.ReadMutation(context.Background(), id)
	if err != nil {
		t.Fatalf("ReadMutation() failed: %v", err)
	}
	if got.Scope != ir.ScopeType {
		t.Errorf("scope = %q, want %q", got.Scope, ir.ScopeType)
	}
	if got.Origin != ir.OriginObserver {
		t.Errorf("origin = %q, want %q", got.Origin, ir.OriginObserver)
	}
	if got.Depth != 1 {
		t.Errorf("depth = %d, want 1", got.Depth)
	}
}

func TestRecord_ImplementsRecorder(t *testing.T) {
	j := createTestJournal(t)
	m := createTestMutation(t, "p-1", "score", ir.Int(0), ir.Int(1), 1)

	if err := j.Record(m); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	muts, err := j.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(muts) != 1 {
		t.Fatalf("len = %d, want 1", len(muts))
	}
}
